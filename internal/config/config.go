// Package config loads the commander configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then EMA_COMMANDER_* environment variables. The defaults reproduce
// the recorder setup the commander was built for, so running without any
// configuration file drives lerobot-record with the three tool tasks.
package config

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-commander/core/tasks"
)

// Config is the complete commander configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" env:"LOG"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" env:"TELEMETRY"`
	Audio       AudioConfig       `yaml:"audio" env:"AUDIO"`
	Recognition RecognitionConfig `yaml:"recognition" env:"RECOGNITION"`
	Speech      SpeechConfig      `yaml:"speech" env:"SPEECH"`
	Supervisor  SupervisorConfig  `yaml:"supervisor" env:"SUPERVISOR"`
	Tasks       TasksConfig       `yaml:"tasks" env:"TASKS"`
	Console     ConsoleConfig     `yaml:"console" env:"CONSOLE"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is text or json.
	Format string `yaml:"format" env:"FORMAT"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// PrometheusAddr is the listen address of the metrics scrape endpoint.
	// Empty disables it.
	PrometheusAddr string  `yaml:"prometheus_addr" env:"PROMETHEUS_ADDR"`
	SampleRate     float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

const (
	AudioPortAudio = "portaudio"
	AudioMiniaudio = "miniaudio"
	AudioWav       = "wav"
)

type AudioConfig struct {
	Backend    string `yaml:"backend" env:"BACKEND"`
	SampleRate int    `yaml:"sample_rate" env:"SAMPLE_RATE"`
	ChunkSize  int    `yaml:"chunk_size" env:"CHUNK_SIZE"`
	// WavPath is the recording replayed by the wav backend.
	WavPath string `yaml:"wav_path" env:"WAV_PATH"`
	// Realtime paces the wav backend at the recording's own speed.
	Realtime bool `yaml:"realtime" env:"REALTIME"`
}

const (
	RecognitionVosk     = "vosk"
	RecognitionDeepgram = "deepgram"
	RecognitionWhisper  = "whisper"
)

type RecognitionConfig struct {
	Engine    string        `yaml:"engine" env:"ENGINE"`
	ModelPath string        `yaml:"model_path" env:"MODEL_PATH"`
	Language  string        `yaml:"language" env:"LANGUAGE"`
	Window    time.Duration `yaml:"window" env:"WINDOW"`
	StopGrace time.Duration `yaml:"stop_grace" env:"STOP_GRACE"`
}

const (
	SpeechCommand  = "command"
	SpeechDeepgram = "deepgram"
	SpeechNotify   = "notify"
	SpeechNone     = "none"
)

type SpeechConfig struct {
	Engine    string `yaml:"engine" env:"ENGINE"`
	Command   string `yaml:"command" env:"COMMAND"`
	Rate      int    `yaml:"rate" env:"RATE"`
	Voice     string `yaml:"voice" env:"VOICE"`
	QueueSize int    `yaml:"queue_size" env:"QUEUE_SIZE"`
	// Notify also shows each announcement as a desktop notification.
	Notify bool `yaml:"notify" env:"NOTIFY"`
}

type SupervisorConfig struct {
	TaskTimeout      time.Duration `yaml:"task_timeout" env:"TASK_TIMEOUT"`
	GracePeriod      time.Duration `yaml:"grace_period" env:"GRACE_PERIOD"`
	KillWait         time.Duration `yaml:"kill_wait" env:"KILL_WAIT"`
	PollInterval     time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	IdlePollInterval time.Duration `yaml:"idle_poll_interval" env:"IDLE_POLL_INTERVAL"`
}

// TaskConfig is one entry of the task table.
type TaskConfig struct {
	Key     string   `yaml:"key"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type TasksConfig struct {
	// Command is the base argv shared by every task. Arguments may contain
	// commas, so it is not read from the environment.
	Command []string `yaml:"command" env:"-"`
	// TaskArgs are text/template arguments appended per task.
	TaskArgs []string `yaml:"task_args" env:"-"`
	// RepoID is a text/template rendered before TaskArgs and exposed to them
	// as {{.RepoID}}.
	RepoID       string       `yaml:"repo_id" env:"REPO_ID"`
	Table        []TaskConfig `yaml:"table" env:"-"`
	StopKeywords []string     `yaml:"stop_keywords" env:"STOP_KEYWORDS"`
}

// Descriptors converts the table for tasks.NewTable.
func (t TasksConfig) Descriptors() []tasks.Descriptor {
	descriptors := make([]tasks.Descriptor, 0, len(t.Table))
	for _, entry := range t.Table {
		descriptors = append(descriptors, tasks.Descriptor{
			Key:     entry.Key,
			Name:    entry.Name,
			Aliases: append([]string(nil), entry.Aliases...),
		})
	}
	return descriptors
}

type ConsoleConfig struct {
	// Enabled reads operator commands from stdin.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

var defaults = Config{
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
	Telemetry: TelemetryConfig{
		ServiceName: "ema-commander",
		SampleRate:  1,
	},
	Audio: AudioConfig{
		Backend:    AudioPortAudio,
		SampleRate: 16000,
		ChunkSize:  8000,
	},
	Recognition: RecognitionConfig{
		Engine:    RecognitionVosk,
		ModelPath: "model/vosk-model-small-en-us-0.15",
		Language:  "en",
		Window:    3 * time.Second,
		StopGrace: 2 * time.Second,
	},
	Speech: SpeechConfig{
		Engine:    SpeechCommand,
		Command:   "espeak-ng",
		Rate:      150,
		QueueSize: 8,
	},
	Supervisor: SupervisorConfig{
		TaskTimeout:      60 * time.Second,
		GracePeriod:      5 * time.Second,
		KillWait:         2 * time.Second,
		PollInterval:     100 * time.Millisecond,
		IdlePollInterval: 500 * time.Millisecond,
	},
	Tasks: TasksConfig{
		Command: []string{
			"lerobot-record",
			"--robot.type=so101_follower",
			"--robot.port=/dev/ttyACM1",
			"--robot.id=follower_arm",
			"--robot.cameras={camera1: {type: opencv, index_or_path: /dev/video4, width: 640, height: 480, fps: 30}, camera2: {type: opencv, index_or_path: /dev/video2, width: 640, height: 480, fps: 30}}",
			"--display_data=true",
			"--policy.path=lleeoogg/LeCoup-De-Pouce",
			"--policy.device=cuda",
			"--policy.empty_cameras=2",
			"--dataset.episode_time_s=10000",
			"--dataset.push_to_hub=False",
			"--dataset.num_episodes=1",
		},
		TaskArgs: []string{
			"--dataset.repo_id={{.RepoID}}",
			"--dataset.single_task={{.Name}}",
		},
		RepoID: "lleeoogg/eval_LeCoup-De-Pouce_{{.SafeName}}_{{.Timestamp}}",
		Table: []TaskConfig{
			{Key: "glove", Name: "Pick up and give the glove"},
			{Key: "syringe", Name: "Pick up and give the syringe", Aliases: []string{"syrian", "surrender"}},
			{Key: "pliers", Name: "Pick up and give the pliers", Aliases: []string{"player", "players", "playoffs"}},
		},
		StopKeywords: []string{"stop", "step"},
	},
}

// Default returns a deep copy of the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if err := copier.CopyWithOption(cfg, &defaults, copier.Option{DeepCopy: true}); err != nil {
		// defaults is a plain value tree; copying it cannot fail.
		panic(err)
	}
	return cfg
}
