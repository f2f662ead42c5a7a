package model

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/internal/types"
)

// Metadata is the JSON sidecar written next to every blob. It is the
// source of truth for compatibility checks: the blob is only decoded
// after the sidecar passes.
type Metadata struct {
	SchemaVersion            int       `json:"schema_version"`
	Ruleset                  string    `json:"ruleset"`
	Season                   int       `json:"season"`
	Week                     int       `json:"week"`
	Seasons                  []int     `json:"seasons"`
	TrainedAt                time.Time `json:"trained_at"`
	SupportsPositionFeatures bool      `json:"supports_position_features"`

	PlayerFeatureNames []string `json:"player_feature_names"`
	DSTFeatureNames    []string `json:"dst_feature_names"`

	PositionKinds map[string]string  `json:"position_kinds"`
	PositionMAE   map[string]float64 `json:"position_mae"`
}

// current points the serving path at the newest artifact for a ruleset.
type current struct {
	Season int    `json:"season"`
	Week   int    `json:"week"`
	Blob   string `json:"blob"`
}

func (ms *ModelStore) rulesetDir(rs scoring.Ruleset) string {
	return filepath.Join(ms.dir, rs.Slug())
}

// Blob names keep the original pipeline's .pkl suffix so existing tooling
// that globs for artifacts keeps working; the payload is gob.
func (ms *ModelStore) blobPath(rs scoring.Ruleset, season, week int) string {
	return filepath.Join(ms.rulesetDir(rs), fmt.Sprintf("%s_%d_wk%d.pkl", rs.Slug(), season, week))
}

// legacyBlobPath is the pre-versioning flat layout, still honored on load.
func (ms *ModelStore) legacyBlobPath(rs scoring.Ruleset) string {
	return filepath.Join(ms.dir, fmt.Sprintf("%s_model.pkl", rs.Slug()))
}

func sidecarPath(blobPath string) string {
	return blobPath[:len(blobPath)-len(filepath.Ext(blobPath))] + ".json"
}

// Save persists the artifact blob, its sidecar, and the CURRENT pointer.
// Every write goes through a temp file and rename so a crash never leaves
// a half-written artifact in place.
func (ms *ModelStore) Save(art *Artifact) error {
	rs := scoring.Ruleset{Name: art.Ruleset}
	dir := ms.rulesetDir(rs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	blobPath := ms.blobPath(rs, art.Season, art.Week)
	blob, err := encodeArtifact(art)
	if err != nil {
		return err
	}
	if err := writeAtomic(blobPath, blob); err != nil {
		return fmt.Errorf("write model blob: %w", err)
	}

	meta := metadataFor(art)
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeAtomic(sidecarPath(blobPath), metaBytes); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	cur := current{Season: art.Season, Week: art.Week, Blob: filepath.Base(blobPath)}
	curBytes, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return fmt.Errorf("encode current pointer: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "CURRENT.json"), curBytes); err != nil {
		return fmt.Errorf("write current pointer: %w", err)
	}

	ms.log.WithField("path", blobPath).Info("Artifact saved")
	return nil
}

// Load reads the artifact for an exact cutoff, falling back to the legacy
// flat layout. Incompatible sidecars fail with ErrSchemaMismatch before
// the blob is touched.
func (ms *ModelStore) Load(rs scoring.Ruleset, season, week int) (*Artifact, error) {
	blobPath := ms.blobPath(rs, season, week)
	if _, err := os.Stat(blobPath); errors.Is(err, os.ErrNotExist) {
		blobPath = ms.legacyBlobPath(rs)
		if _, err := os.Stat(blobPath); err != nil {
			return nil, fmt.Errorf("no artifact for %s %d/wk%d: %w", rs.Name, season, week, types.ErrNotFound)
		}
	}
	return ms.loadBlob(blobPath)
}

// LoadCurrent follows the CURRENT pointer for a ruleset.
func (ms *ModelStore) LoadCurrent(rs scoring.Ruleset) (*Artifact, error) {
	raw, err := os.ReadFile(filepath.Join(ms.rulesetDir(rs), "CURRENT.json"))
	if err != nil {
		return nil, fmt.Errorf("no current artifact for %s: %w", rs.Name, types.ErrNotFound)
	}
	var cur current
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, fmt.Errorf("corrupt current pointer for %s: %w", rs.Name, types.ErrInternal)
	}
	return ms.loadBlob(filepath.Join(ms.rulesetDir(rs), cur.Blob))
}

func (ms *ModelStore) loadBlob(blobPath string) (*Artifact, error) {
	if meta, err := readMetadata(sidecarPath(blobPath)); err == nil {
		if err := checkSchema(meta); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(blobPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var art Artifact
	if err := gob.NewDecoder(f).Decode(&art); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", filepath.Base(blobPath), types.ErrSchemaMismatch)
	}
	if art.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("artifact schema v%d, want v%d: %w",
			art.SchemaVersion, SchemaVersion, types.ErrSchemaMismatch)
	}
	return &art, nil
}

func readMetadata(path string) (*Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func checkSchema(meta *Metadata) error {
	if meta.SchemaVersion != SchemaVersion {
		return fmt.Errorf("artifact schema v%d, want v%d: %w",
			meta.SchemaVersion, SchemaVersion, types.ErrSchemaMismatch)
	}
	if !sameNames(meta.PlayerFeatureNames, features.BaseFeatureNames) {
		return fmt.Errorf("player feature schema changed since training: %w", types.ErrSchemaMismatch)
	}
	if !sameNames(meta.DSTFeatureNames, features.DSTFeatureNames) {
		return fmt.Errorf("dst feature schema changed since training: %w", types.ErrSchemaMismatch)
	}
	return nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func metadataFor(art *Artifact) *Metadata {
	meta := &Metadata{
		SchemaVersion:            art.SchemaVersion,
		Ruleset:                  art.Ruleset,
		Season:                   art.Season,
		Week:                     art.Week,
		Seasons:                  art.Seasons,
		TrainedAt:                art.TrainedAt,
		SupportsPositionFeatures: art.SupportsPositionFeatures,
		PlayerFeatureNames:       append([]string(nil), features.BaseFeatureNames...),
		DSTFeatureNames:          append([]string(nil), features.DSTFeatureNames...),
		PositionKinds:            make(map[string]string),
		PositionMAE:              make(map[string]float64),
	}
	for position, m := range art.Players {
		meta.PositionKinds[position] = m.Kind
		meta.PositionMAE[position] = m.HeldOutMAE
	}
	if art.DST != nil {
		meta.PositionKinds["DST"] = art.DST.Kind
		meta.PositionMAE["DST"] = art.DST.HeldOutMAE
	}
	return meta
}

func encodeArtifact(art *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(art); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
