// Package artifact runs the build command and extracts the executables it
// reports on its line-delimited JSON output.
package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"slices"
)

const (
	// ReasonCompilerArtifact tags a record describing a finished artifact.
	ReasonCompilerArtifact = "compiler-artifact"
	// KindBin marks an executable target.
	KindBin = "bin"
)

// Artifact is one executable produced by a build.
type Artifact struct {
	Path string
	// Fresh is true when the build tool reused an up-to-date artifact.
	Fresh bool
}

// record is the subset of a structured output line watchf consumes.
// Unknown fields are ignored.
type record struct {
	Reason string `json:"reason"`
	Target struct {
		Kind []string `json:"kind"`
	} `json:"target"`
	Executable *string `json:"executable"`
	Fresh      bool    `json:"fresh"`
}

// Parse reads structured output records one per line and returns the
// executables in the order they were reported. Lines that are not JSON,
// records with another reason, non-bin targets and records without an
// executable path are skipped.
func Parse(r io.Reader) ([]Artifact, error) {
	var artifacts []Artifact

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if a, ok := parseLine(line); ok {
			artifacts = append(artifacts, a)
		}
		if errors.Is(err, io.EOF) {
			return artifacts, nil
		}
		if err != nil {
			return artifacts, err
		}
	}
}

func parseLine(line []byte) (Artifact, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Artifact{}, false
	}

	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return Artifact{}, false
	}
	if rec.Reason != ReasonCompilerArtifact {
		return Artifact{}, false
	}
	if rec.Executable == nil || *rec.Executable == "" {
		return Artifact{}, false
	}
	if !slices.Contains(rec.Target.Kind, KindBin) {
		return Artifact{}, false
	}
	return Artifact{Path: *rec.Executable, Fresh: rec.Fresh}, true
}

// Paths returns the paths of artifacts, in order.
func Paths(artifacts []Artifact) []string {
	paths := make([]string, len(artifacts))
	for i, a := range artifacts {
		paths[i] = a.Path
	}
	return paths
}
