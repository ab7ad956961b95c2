// Package storage persists finished runs: a metadata.json per run and one CSV
// track per body.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/bodysim/internal/body"
	"go.uber.org/zap"
)

type Store struct {
	baseDir string
	log     *zap.Logger
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, log: zap.NewNop()}
}

func (s *Store) SetLogger(l *zap.Logger) {
	if l != nil {
		s.log = l
	}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	World      string             `json:"world"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	TimeStep   float64            `json:"time_step"`
	Frames     int                `json:"frames"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Recording  string             `json:"recording"`
	Abnormal   bool               `json:"abnormal"`
	Error      string             `json:"error,omitempty"`
	Bodies     []string           `json:"bodies"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Track is the recorded trajectory of one body.
type Track struct {
	Body   string
	Frames []body.Snapshot
}

// Save writes a run under a new ID, which it returns. meta.ID, Timestamp
// and Bodies are filled in.
func (s *Store) Save(meta RunMetadata, tracks []Track) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Bodies = make([]string, 0, len(tracks))
	for _, tr := range tracks {
		meta.Bodies = append(meta.Bodies, tr.Body)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	for _, tr := range tracks {
		if err := writeTrack(filepath.Join(runDir, trackFile(tr.Body)), tr.Frames); err != nil {
			return "", fmt.Errorf("track %s: %w", tr.Body, err)
		}
	}

	s.log.Info("run saved", zap.String("id", meta.ID), zap.String("world", meta.World), zap.Int("bodies", len(tracks)))
	return meta.ID, nil
}

func trackFile(bodyName string) string {
	return "body_" + bodyName + ".csv"
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeTrack(path string, frames []body.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	joints := 0
	if len(frames) > 0 {
		joints = len(frames[0].Q)
	}

	header := []string{"frame", "time", "x", "y", "z"}
	for _, prefix := range []string{"q", "dq", "u"} {
		for i := 0; i < joints; i++ {
			header = append(header, fmt.Sprintf("%s%d", prefix, i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, fr := range frames {
		row := []string{strconv.Itoa(fr.Frame), formatFloat(fr.Time)}
		for _, v := range fr.Root.Position {
			row = append(row, formatFloat(v))
		}
		for _, vals := range [][]float64{fr.Q, fr.DQ, fr.U} {
			for i := 0; i < joints; i++ {
				v := 0.0
				if i < len(vals) {
					v = vals[i]
				}
				row = append(row, formatFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			s.log.Debug("skipping unreadable run", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Series is a loaded track in column form.
type Series struct {
	Frames []int        `json:"frames"`
	Times  []float64    `json:"times"`
	Root   [][3]float64 `json:"root"`
	Q      [][]float64  `json:"q"`
	DQ     [][]float64  `json:"dq"`
	U      [][]float64  `json:"u"`
}

func (s *Store) LoadTrack(runID, bodyName string) (*Series, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, trackFile(bodyName)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	series := &Series{}
	if len(records) < 2 {
		return series, nil
	}
	joints := (len(records[0]) - 5) / 3

	for _, record := range records[1:] {
		if len(record) < 5+3*joints {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		series.Frames = append(series.Frames, int(vals[0]))
		series.Times = append(series.Times, vals[1])
		series.Root = append(series.Root, [3]float64{vals[2], vals[3], vals[4]})
		series.Q = append(series.Q, vals[5:5+joints])
		series.DQ = append(series.DQ, vals[5+joints:5+2*joints])
		series.U = append(series.U, vals[5+2*joints:5+3*joints])
	}
	return series, nil
}
