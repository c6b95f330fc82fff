package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mcjob/internal/checkpoint"
	"github.com/roach88/mcjob/internal/mc"
)

// jobFile is the on-disk form shared by CUE, YAML and JSON job files.
type jobFile struct {
	Name              string         `yaml:"name" json:"name"`
	Model             string         `yaml:"model" json:"model"`
	CheckpointTime    *Duration      `yaml:"checkpoint_time" json:"checkpoint_time"`
	RunTime           *Duration      `yaml:"run_time" json:"run_time"`
	RunsPerTask       *int           `yaml:"runs_per_task" json:"runs_per_task"`
	RanksPerRun       *int           `yaml:"ranks_per_run" json:"ranks_per_run"`
	Workers           *int           `yaml:"workers" json:"workers"`
	CheckpointBackend string         `yaml:"checkpoint_backend" json:"checkpoint_backend"`
	Defaults          map[string]any `yaml:"defaults" json:"defaults"`
	Tasks             []taskFile     `yaml:"tasks" json:"tasks"`
}

type taskFile struct {
	Name   string         `yaml:"name" json:"name"`
	Params map[string]any `yaml:"params" json:"params"`
}

// Load reads a job file. The format is chosen by extension: .cue, .yaml,
// .yml or .json. The job name defaults to the file name without extension.
// Every problem with the file's content is a configuration error.
func Load(path string) (*Job, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve job file: %w", err)
	}

	var jf jobFile
	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".cue":
		err = loadCUE(abs, &jf)
	case ".yaml", ".yml":
		err = loadYAML(abs, &jf)
	case ".json":
		err = loadJSON(abs, &jf)
	default:
		return nil, mc.NewConfigurationError(fmt.Sprintf("job file %s: unsupported extension %q", path, ext))
	}
	if err != nil {
		return nil, err
	}

	defaultName := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	j, err := jf.build(defaultName, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return j, nil
}

func loadCUE(path string, jf *jobFile) error {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: no CUE instances loaded", path))
	}
	inst := instances[0]
	if inst.Err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: loading CUE: %v", path, inst.Err))
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: building CUE value: %v", path, err))
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: %v", path, err))
	}

	// Going through JSON keeps one decoding path for every format and
	// preserves integer parameters as json.Number.
	data, err := value.MarshalJSON()
	if err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: exporting CUE: %v", path, err))
	}
	return decodeJSON(path, data, jf)
}

func loadYAML(path string, jf *jobFile) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(jf); err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: %v", path, err))
	}
	return nil
}

func loadJSON(path string, jf *jobFile) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}
	return decodeJSON(path, data, jf)
}

func decodeJSON(path string, data []byte, jf *jobFile) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(jf); err != nil {
		return mc.NewConfigurationError(fmt.Sprintf("job file %s: %v", path, err))
	}
	return nil
}

func (jf *jobFile) build(defaultName, dir string) (*Job, error) {
	name := jf.Name
	if name == "" {
		name = defaultName
	}
	j := &Job{
		Name:     NormalizeName(name),
		Model:    jf.Model,
		Settings: DefaultSettings(),
	}
	j.Layout = Layout{Dir: dir, Name: j.Name}

	if jf.CheckpointTime != nil {
		j.Settings.CheckpointTime = jf.CheckpointTime.Std()
	}
	if jf.RunTime != nil {
		j.Settings.RunTime = jf.RunTime.Std()
	}
	if jf.RunsPerTask != nil {
		j.Settings.RunsPerTask = *jf.RunsPerTask
	}
	if jf.RanksPerRun != nil {
		j.Settings.RanksPerRun = *jf.RanksPerRun
	}
	if jf.Workers != nil {
		j.Settings.Workers = *jf.Workers
	}
	backend, err := checkpoint.ParseBackend(jf.CheckpointBackend)
	if err != nil {
		return nil, mc.NewConfigurationError(err.Error())
	}
	j.Settings.Backend = backend

	for i, tf := range jf.Tasks {
		params := mc.Params(jf.Defaults).Clone()
		for k, v := range tf.Params {
			params[k] = v
		}
		tname := tf.Name
		if tname == "" {
			tname = fmt.Sprintf("task%04d", i+1)
		}
		j.Tasks = append(j.Tasks, Task{Name: NormalizeName(tname), Params: params})
	}
	return j, nil
}
