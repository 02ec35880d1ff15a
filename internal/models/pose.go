package models

import (
	"encoding/json"
	"fmt"
)

// BodyPart is one of the 17 COCO body landmarks.
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// BodyPartCount is the size of the landmark enumeration.
const BodyPartCount = 17

var bodyPartNames = [BodyPartCount]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// BodyParts lists every landmark in canonical order.
func BodyParts() []BodyPart {
	parts := make([]BodyPart, BodyPartCount)
	for i := range parts {
		parts[i] = BodyPart(i)
	}
	return parts
}

func (b BodyPart) Valid() bool { return b >= 0 && b < BodyPartCount }

func (b BodyPart) String() string {
	if !b.Valid() {
		return ""
	}
	return bodyPartNames[b]
}

// ParseBodyPart maps a wire label such as "left_knee" to its [BodyPart].
func ParseBodyPart(label string) (BodyPart, bool) {
	for i, name := range bodyPartNames {
		if name == label {
			return BodyPart(i), true
		}
	}
	return -1, false
}

// Connection is a skeletal edge between two landmarks.
type Connection struct {
	From BodyPart
	To   BodyPart
}

// Connections are the 12 limb and torso edges drawn by the overlay. The head is drawn as points only.
var Connections = [12]Connection{
	{LeftShoulder, RightShoulder},
	{LeftHip, RightHip},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
}

// Keypoint is a landmark position normalized to [0,1] of the frame; (0,0) means not detected.
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Detected reports whether the keypoint carries a real position.
func (k Keypoint) Detected() bool { return k.X > 0 }

// Pose holds a keypoint for every [BodyPart], indexed by the enumeration.
type Pose [BodyPartCount]Keypoint

// Get returns the keypoint for part, or the sentinel for invalid parts.
func (p Pose) Get(part BodyPart) Keypoint {
	if !part.Valid() {
		return Keypoint{}
	}
	return p[part]
}

// MarshalJSON writes the pose as an object keyed by landmark label.
func (p Pose) MarshalJSON() ([]byte, error) {
	out := make(map[string]Keypoint, BodyPartCount)
	for i, kp := range p {
		out[bodyPartNames[i]] = kp
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads an object keyed by landmark label.
//
// Unknown labels are skipped; missing or malformed entries stay at the sentinel.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("pose: %w", err)
	}

	*p = Pose{}
	for label, value := range raw {
		part, ok := ParseBodyPart(label)
		if !ok {
			continue
		}
		var kp Keypoint
		if err := json.Unmarshal(value, &kp); err != nil {
			continue
		}
		p[part] = kp
	}
	return nil
}

// Status is the model's verdict on a landmark's position.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
)

// PoseFeedback is a partial assessment; an absent part means "no assessment".
type PoseFeedback map[BodyPart]Status

// Status returns the verdict for part and whether one exists.
func (f PoseFeedback) Status(part BodyPart) (Status, bool) {
	s, ok := f[part]
	return s, ok
}

// MarshalJSON writes the feedback keyed by landmark label.
func (f PoseFeedback) MarshalJSON() ([]byte, error) {
	out := make(map[string]Status, len(f))
	for part, status := range f {
		if part.Valid() {
			out[part.String()] = status
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON keeps only known labels with a correct/incorrect verdict.
func (f *PoseFeedback) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}

	out := make(PoseFeedback, len(raw))
	for label, value := range raw {
		part, ok := ParseBodyPart(label)
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch Status(s) {
		case StatusCorrect, StatusIncorrect:
			out[part] = Status(s)
		}
	}
	*f = out
	return nil
}

// AnalysisResponse is the complete result of one analysis tick.
type AnalysisResponse struct {
	Pose     Pose         `json:"pose"`
	Feedback PoseFeedback `json:"feedback"`
	Text     string       `json:"text"`
}
