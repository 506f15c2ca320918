// Package core contains the foundational types shared by the scenesmith
// orchestration layers: conversation turns and their content parts, sessions
// with append-only transcripts, artifact descriptors, and the store
// interfaces implemented by the session and artifact packages.
//
// The package is dependency-light on purpose: runner, pipeline, tool and
// model all build on these types without importing each other.
package core
