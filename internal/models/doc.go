// Package models defines the domain vocabulary of the movement coach.
//
// The package contains two categories of types:
//
// 1. Catalog entries: static, immutable data defined at startup
//   - [Movement] : a locomotor exercise with its reference demonstration
//
// 2. Analysis DTOs: transient values decoded from the hosted model, never persisted
//   - [BodyPart] : closed enumeration of the 17 COCO body landmarks
//   - [Keypoint] : normalized coordinate, (0,0) meaning "not detected"
//   - [Pose] : all 17 landmarks, always complete
//   - [PoseFeedback] : partial correctness assessment per landmark
//   - [AnalysisResponse] : pose + feedback + free-form encouragement text
//
// Decoding is lenient on purpose: the model output is only JSON-validated upstream,
// so unknown labels and statuses are ignored and missing landmarks become sentinels.
package models
