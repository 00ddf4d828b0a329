package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/cogsmith/pkg/domain/types"
)

func TestSessionStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status types.SessionStatus
		want   bool
	}{
		{name: "active", status: types.SessionStatusActive, want: true},
		{name: "completed", status: types.SessionStatusCompleted, want: true},
		{name: "abandoned", status: types.SessionStatusAbandoned, want: true},
		{name: "unknown", status: types.SessionStatus("paused"), want: false},
		{name: "empty", status: types.SessionStatus(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.status.IsValid()).Equal(tt.want)
		})
	}
}

func TestSessionStatus_IsIncomplete(t *testing.T) {
	gt.Bool(t, types.SessionStatusActive.IsIncomplete()).True()
	gt.Bool(t, types.SessionStatusAbandoned.IsIncomplete()).True()
	gt.Bool(t, types.SessionStatusCompleted.IsIncomplete()).False()
}

func TestParseSessionStatus(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		status, err := types.ParseSessionStatus("abandoned")
		gt.NoError(t, err)
		gt.Value(t, status).Equal(types.SessionStatusAbandoned)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := types.ParseSessionStatus("ACTIVE")
		gt.Error(t, err)
	})
}

func TestAllSessionStatuses(t *testing.T) {
	statuses := types.AllSessionStatuses()
	gt.Array(t, statuses).Length(3)
	for _, s := range statuses {
		gt.Bool(t, s.IsValid()).True()
	}
}
