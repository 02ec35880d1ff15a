// Package capture acquires frames from a camera device.
//
// A [Source] is opened into a [Stream]; the stream owns the device until Close. Streams hold
// at most one undelivered frame: when frames arrive faster than they are read, the older
// frame is overwritten and counted as dropped. Consumers always see the most recent image.
//
// Two sources exist:
//   - [CameraSource] runs ffmpeg against a local video device and parses its MJPEG output
//   - [DirSource] loops over the still images of a directory, for demos and headless tests
package capture
