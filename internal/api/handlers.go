package api

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/mirador-twin/internal/models"
)

// FromStringValue extracts a required string argument exactly as sent.
func FromStringValue(req *wrapperspb.StringValue, field string) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	value := req.GetValue()
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return value, nil
}

// ToStructTwin converts a twin summary into its wire representation.
func ToStructTwin(view models.TwinView) (*structpb.Struct, error) {
	return structpb.NewStruct(twinFields(view))
}

// ToStructTwinList converts registered twins, preserving order.
func ToStructTwinList(views []models.TwinView) (*structpb.Struct, error) {
	twins := make([]any, 0, len(views))
	for _, view := range views {
		twins = append(twins, twinFields(view))
	}
	return structpb.NewStruct(map[string]any{"twins": twins})
}

// ToStructTwinDetail converts a twin with its latest sample, history and failure state.
func ToStructTwinDetail(view models.TwinView) (*structpb.Struct, error) {
	fields := twinFields(view)
	if view.Latest != nil {
		fields["latest"] = snapshotFields(*view.Latest)
	}
	recent := make([]any, 0, len(view.Recent))
	for _, s := range view.Recent {
		recent = append(recent, snapshotFields(s))
	}
	fields["recent"] = recent
	if view.Failure != nil {
		failure := map[string]any{"recordedAt": formatTime(view.Failure.RecordedAt)}
		if view.Failure.Err != nil {
			failure["error"] = view.Failure.Err.Error()
		}
		fields["lastFailure"] = failure
	}
	return structpb.NewStruct(fields)
}

func twinFields(view models.TwinView) map[string]any {
	return map[string]any{
		"id":        view.Twin.ID,
		"name":      view.Twin.Name,
		"createdAt": formatTime(view.Twin.CreatedAt),
		"health":    string(view.Health),
	}
}

func snapshotFields(s models.Snapshot) map[string]any {
	return map[string]any{
		"type":               s.Type,
		"airTempC":           s.AirTempC(),
		"processTempC":       s.ProcessTempC(),
		"rotationalSpeedRpm": s.RotationalSpeedRPM,
		"torqueNm":           s.TorqueNm,
		"toolWearMin":        s.ToolWearMin,
		"healthStatus":       s.HealthStatus,
		"capturedAt":         formatTime(s.CapturedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
