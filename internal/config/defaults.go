package config

const (
	defaultProjectDir = "~/beatforge"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"

	defaultBeatsPerClip  = 4
	defaultTilePolicy    = "best_effort"
	defaultSegmentPreset = "fast"
	defaultSegmentCRF    = 23
	defaultAudioCodec    = "aac"

	defaultEnhancePreset = "slow"
	defaultEnhanceCRF    = 18
	defaultTargetFPS     = 60
	defaultMaxWidth      = 3840
	defaultMaxHeight     = 2160

	defaultWorkers                 = 4
	defaultDebounceMillis          = 1000
	defaultQueueDepth              = 64
	defaultThumbnailTimeoutSeconds = 10

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
		},
		Assembly: Assembly{
			BeatsPerClip:  defaultBeatsPerClip,
			TilePolicy:    defaultTilePolicy,
			SegmentPreset: defaultSegmentPreset,
			SegmentCRF:    defaultSegmentCRF,
			AudioCodec:    defaultAudioCodec,
		},
		Enhance: Enhance{
			Preset:    defaultEnhancePreset,
			CRF:       defaultEnhanceCRF,
			TargetFPS: defaultTargetFPS,
			MaxWidth:  defaultMaxWidth,
			MaxHeight: defaultMaxHeight,
		},
		Workflow: Workflow{
			Workers:                 defaultWorkers,
			DebounceMillis:          defaultDebounceMillis,
			QueueDepth:              defaultQueueDepth,
			ThumbnailTimeoutSeconds: defaultThumbnailTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Deliverables:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
