package demand

import (
	"encoding/gob"
	"fmt"
	"io"
)

const artifactVersion = 1

type artifact struct {
	Version int
	Model   *Model
	Result  *TrainResult
}

// Snapshot pairs a model with the result of the run that fitted it. Result
// is nil for artifacts written without one.
type Snapshot struct {
	Model  *Model
	Result *TrainResult
}

// Save writes the model, including its encoders and calendar, as a gob stream.
func Save(w io.Writer, m *Model) error {
	return SaveSnapshot(w, Snapshot{Model: m})
}

func SaveSnapshot(w io.Writer, s Snapshot) error {
	if s.Model == nil || !s.Model.Forest.Fitted() {
		return ErrModelNotTrained
	}
	a := artifact{Version: artifactVersion, Model: s.Model, Result: s.Result}
	if err := gob.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

func Load(r io.Reader) (*Model, error) {
	s, err := LoadSnapshot(r)
	if err != nil {
		return nil, err
	}
	return s.Model, nil
}

func LoadSnapshot(r io.Reader) (Snapshot, error) {
	var a artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return Snapshot{}, fmt.Errorf("decode model: %w", err)
	}
	if a.Version != artifactVersion {
		return Snapshot{}, fmt.Errorf("decode model: unsupported artifact version %d", a.Version)
	}
	if a.Model == nil || !a.Model.Forest.Fitted() {
		return Snapshot{}, ErrModelNotTrained
	}
	return Snapshot{Model: a.Model, Result: a.Result}, nil
}
