package config

const (
	defaultWatchDir          = "~/labwatch/input_files"
	defaultStateDir          = "~/.local/share/labwatch"
	defaultDebounceMillis    = 500
	defaultPollTimeoutMillis = 1000
	defaultSinkBuffer        = 256
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionRuns  = 20
	defaultNtfyTimeoutSecs   = 10

	defaultDeviationRatio    = 0.2
	defaultAcceptancePercent = 80.0
	defaultCreationTolerance = 0.30
)

// Policy names accepted by [evaluation] default_policy and [[categories]] policy.
const (
	PolicySpacing  = "spacing"
	PolicyCreation = "creation"
	PolicyShot     = "shot"
)

// Producer names accepted by [[categories]] producer.
const (
	ProducerPhoton    = "photon"
	ProducerFPGA      = "fpga"
	ProducerNPZ       = "npz"
	ProducerGagescope = "gagescope"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir: defaultWatchDir,
			StateDir: defaultStateDir,
		},
		Watcher: Watcher{
			DebounceMillis: defaultDebounceMillis,
		},
		Dispatcher: Dispatcher{
			PollTimeoutMillis: defaultPollTimeoutMillis,
			SinkBuffer:        defaultSinkBuffer,
		},
		Evaluation: Evaluation{
			DefaultPolicy:     PolicySpacing,
			DeviationRatio:    defaultDeviationRatio,
			AcceptancePercent: defaultAcceptancePercent,
			CreationTolerance: defaultCreationTolerance,
		},
		Categories: defaultCategories(),
		Results: Results{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSecs: defaultNtfyTimeoutSecs,
			NotifyRejections:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionRuns: defaultLogRetentionRuns,
		},
	}
}

func defaultCategories() []Category {
	return []Category{
		{Name: "photon", Extensions: []string{".bin", ".csv", ".dat"}, Producer: ProducerPhoton},
		{Name: "fpga", Extensions: []string{".txt"}, Producer: ProducerFPGA},
		{Name: "artifact", Extensions: []string{".npz"}, Producer: ProducerNPZ},
		{Name: "gagescope", Extensions: []string{".h5"}, Producer: ProducerGagescope, Spectrum: true},
	}
}
