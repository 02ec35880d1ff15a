package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/gerak/internal/shared"
)

func TestCatalog(t *testing.T) {
	t.Run("DefaultMovements", func(t *testing.T) {
		catalog := DefaultMovements()
		if len(catalog) != 3 {
			t.Fatalf("expected 3 movements, got %d", len(catalog))
		}

		want := []string{"Berjalan", "Berlari", "Melompat"}
		for i, m := range catalog {
			if m.Name != want[i] {
				t.Errorf("movement %d = %s, want %s", i, m.Name, want[i])
			}
			if m.ImageURL == "" || m.Description == "" {
				t.Errorf("movement %s is missing reference data", m.ID)
			}
		}
	})

	t.Run("FindMovement", func(t *testing.T) {
		m, err := FindMovement(DefaultMovements(), "berlari")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.Name != "Berlari" {
			t.Errorf("expected Berlari, got %s", m.Name)
		}

		if _, err := FindMovement(DefaultMovements(), "berenang"); !errors.Is(err, shared.ErrMovementNotFound) {
			t.Errorf("expected ErrMovementNotFound, got %v", err)
		}
	})

	t.Run("NewCatalog", func(t *testing.T) {
		tt := []struct {
			name      string
			movements []Movement
			wantLen   int
			wantErr   bool
		}{
			{name: "empty uses defaults", movements: nil, wantLen: 3},
			{name: "custom", movements: []Movement{{ID: " jinjit ", Name: "Jinjit"}}, wantLen: 1},
			{name: "missing name", movements: []Movement{{ID: "x"}}, wantErr: true},
			{name: "duplicate id", movements: []Movement{{ID: "x", Name: "X"}, {ID: "x", Name: "Y"}}, wantErr: true},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				got, err := NewCatalog(tc.movements)
				if (err != nil) != tc.wantErr {
					t.Fatalf("NewCatalog() error = %v, wantErr %v", err, tc.wantErr)
				}
				if tc.wantErr {
					if !errors.Is(err, shared.ErrInvalidConfig) {
						t.Errorf("expected ErrInvalidConfig, got %v", err)
					}
					return
				}
				if len(got) != tc.wantLen {
					t.Errorf("NewCatalog() len = %d, want %d", len(got), tc.wantLen)
				}
			})
		}
	})
}

func TestBodyPart(t *testing.T) {
	if len(BodyParts()) != BodyPartCount {
		t.Fatalf("expected %d parts", BodyPartCount)
	}

	for _, part := range BodyParts() {
		parsed, ok := ParseBodyPart(part.String())
		if !ok || parsed != part {
			t.Errorf("ParseBodyPart(%q) = %v, %v", part.String(), parsed, ok)
		}
	}

	if _, ok := ParseBodyPart("tail"); ok {
		t.Error("expected unknown label to fail")
	}
	if BodyPart(17).String() != "" || BodyPart(-1).Valid() {
		t.Error("out-of-range parts must be invalid")
	}
}

func TestConnections(t *testing.T) {
	for _, c := range Connections {
		if !c.From.Valid() || !c.To.Valid() || c.From == c.To {
			t.Errorf("bad connection %v", c)
		}
		if c.From <= RightEar || c.To <= RightEar {
			t.Errorf("head landmarks are not connected: %v", c)
		}
	}
}

func TestAnalysisResponseDecode(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		payload := `{
			"pose": {"nose": {"x": 0.5, "y": 0.1}, "left_knee": {"x": 0.4, "y": 0.8}},
			"feedback": {"left_knee": "incorrect", "nose": "correct"},
			"text": "Hebat!"
		}`

		var resp AnalysisResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if resp.Text != "Hebat!" {
			t.Errorf("expected text Hebat!, got %q", resp.Text)
		}
		if got := resp.Pose.Get(LeftKnee); got != (Keypoint{X: 0.4, Y: 0.8}) {
			t.Errorf("left knee = %+v", got)
		}
		if resp.Pose.Get(RightAnkle).Detected() {
			t.Error("missing landmark must decode to the sentinel")
		}
		if s, ok := resp.Feedback.Status(LeftKnee); !ok || s != StatusIncorrect {
			t.Errorf("left knee status = %v, %v", s, ok)
		}
		if _, ok := resp.Feedback.Status(RightKnee); ok {
			t.Error("absent feedback must stay unassessed")
		}
	})

	t.Run("tolerates malformed entries", func(t *testing.T) {
		payload := `{
			"pose": {"nose": {"x": "left"}, "tail": {"x": 1, "y": 1}, "right_hip": {"x": 0.3, "y": 0.6}},
			"feedback": {"right_hip": "meh", "left_hip": 3, "wing": "correct", "nose": "correct"},
			"text": "Ayo!"
		}`

		var resp AnalysisResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Pose.Get(Nose).Detected() {
			t.Error("malformed keypoint should be the sentinel")
		}
		if !resp.Pose.Get(RightHip).Detected() {
			t.Error("valid keypoint should survive")
		}
		if len(resp.Feedback) != 1 {
			t.Errorf("expected only the nose verdict, got %v", resp.Feedback)
		}
	})

	t.Run("pose is not an object", func(t *testing.T) {
		var resp AnalysisResponse
		if err := json.Unmarshal([]byte(`{"pose": [1,2], "text": "x"}`), &resp); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("encode keeps wire labels", func(t *testing.T) {
		var resp AnalysisResponse
		resp.Pose[LeftWrist] = Keypoint{X: 0.2, Y: 0.3}
		resp.Feedback = PoseFeedback{LeftWrist: StatusCorrect}
		resp.Text = "Bagus"

		data, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var raw struct {
			Pose     map[string]Keypoint `json:"pose"`
			Feedback map[string]string   `json:"feedback"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(raw.Pose) != BodyPartCount {
			t.Errorf("expected all %d labels, got %d", BodyPartCount, len(raw.Pose))
		}
		if raw.Feedback["left_wrist"] != "correct" {
			t.Errorf("feedback = %v", raw.Feedback)
		}
	})
}
