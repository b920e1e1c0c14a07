package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Harro4135/pidlab/internal/analyze"
	"github.com/Harro4135/pidlab/internal/loop"
)

// Store persists completed runs under a base directory, one directory
// per run holding metadata.json and samples.csv. The engine itself
// never persists anything; only the CLI goes through here.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type ControllerMeta struct {
	Name string  `json:"name"`
	Mode string  `json:"mode"`
	Kp   float64 `json:"kp"`
	Ki   float64 `json:"ki"`
	Kd   float64 `json:"kd"`
}

// ReportMeta is an analyzer report with undefined metrics encoded as
// JSON null rather than sentinel numbers.
type ReportMeta struct {
	SteadyStateError *float64 `json:"steady_state_error"`
	Overshoot        float64  `json:"overshoot"`
	SettlingTime     *float64 `json:"settling_time"`
}

func NewReportMeta(r analyze.Report) ReportMeta {
	m := ReportMeta{Overshoot: r.Overshoot}
	if r.SteadyStateDefined {
		v := r.SteadyStateError
		m.SteadyStateError = &v
	}
	if r.Settled {
		v := r.SettlingTime
		m.SettlingTime = &v
	}
	return m
}

type RunMetadata struct {
	ID          string                `json:"id"`
	Timestamp   time.Time             `json:"timestamp"`
	Dt          float64               `json:"dt"`
	Duration    float64               `json:"duration"`
	Setpoint    float64               `json:"setpoint"`
	Disturbance float64               `json:"disturbance"`
	Controllers []ControllerMeta      `json:"controllers"`
	Reports     map[string]ReportMeta `json:"reports"`
}

var sampleHeader = []string{
	"controller", "time", "setpoint", "disturbance", "pv", "error", "output", "integral",
}

// Save writes one run: metadata plus every controller's samples, one
// CSV row per sample. Returns the generated run id.
func (s *Store) Save(meta RunMetadata, samples map[string][]loop.Sample) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(sampleHeader); err != nil {
		return "", err
	}

	// controllers in metadata order so the file is deterministic
	for _, cm := range meta.Controllers {
		for _, sample := range samples[cm.Name] {
			row := []string{
				cm.Name,
				fmtFloat(sample.Time),
				fmtFloat(sample.Setpoint),
				fmtFloat(sample.Disturbance),
				fmtFloat(sample.ProcessVariable),
				fmtFloat(sample.Error),
				fmtFloat(sample.Output),
				fmtFloat(sample.Integral),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	return runID, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

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
			continue
		}
		runs = append(runs, *meta)
	}

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

// LoadSamples reads a run's samples back, grouped by controller name
// in file order.
func (s *Store) LoadSamples(runID string) (map[string][]loop.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]loop.Sample)
	for i, record := range records {
		if i == 0 || len(record) < len(sampleHeader) {
			continue
		}

		vals := make([]float64, len(sampleHeader)-1)
		ok := true
		for j := range vals {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}

		name := record[0]
		out[name] = append(out[name], loop.Sample{
			Time:            vals[0],
			Setpoint:        vals[1],
			Disturbance:     vals[2],
			ProcessVariable: vals[3],
			Error:           vals[4],
			Output:          vals[5],
			Integral:        vals[6],
		})
	}

	return out, nil
}
