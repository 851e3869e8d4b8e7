package config

const (
	defaultConfigPath          = "~/.config/reelscope/config.toml"
	defaultDownloadDir         = "~/.local/share/reelscope/downloads"
	defaultStateDir            = "~/.local/share/reelscope"
	defaultLogDir              = "~/.local/share/reelscope/logs"
	defaultAPIBind             = "127.0.0.1:7489"
	defaultModel               = "base"
	defaultMaxComments         = 200
	defaultMaxConcurrentRuns   = 2
	defaultFrameBuffer         = 1024
	defaultRunRetentionMinutes = 60
	defaultYTDLPBinary         = "yt-dlp"
	defaultSocketTimeout       = 30
	defaultRetries             = 5
	defaultFormat              = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	defaultUserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTranscriberCommand  = "uvx"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultComputeType         = "int8"
	defaultBatchSize           = 8
	defaultTranscribeTimeout   = 1800
	defaultInstagramBaseURL    = "https://www.instagram.com"
	defaultInstagramAppID      = "936619743392459"
	defaultInstagramTimeout    = 30
	defaultInstagramPageSize   = 50
	defaultLogFormat           = "auto"
	defaultLogLevel            = "info"
)

// SupportedModels lists the transcription model tiers accepted in requests.
var SupportedModels = []string{"tiny", "base", "small", "medium", "large-v3"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Pipeline: Pipeline{
			DefaultModel:        defaultModel,
			MaxComments:         defaultMaxComments,
			MaxConcurrentRuns:   defaultMaxConcurrentRuns,
			FrameBuffer:         defaultFrameBuffer,
			RunRetentionMinutes: defaultRunRetentionMinutes,
		},
		Downloader: Downloader{
			Binary:        defaultYTDLPBinary,
			SocketTimeout: defaultSocketTimeout,
			Retries:       defaultRetries,
			Format:        defaultFormat,
			UserAgent:     defaultUserAgent,
		},
		Transcriber: Transcriber{
			Command:        defaultTranscriberCommand,
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			ComputeType:    defaultComputeType,
			BatchSize:      defaultBatchSize,
			TimeoutSeconds: defaultTranscribeTimeout,
		},
		Instagram: Instagram{
			BaseURL:        defaultInstagramBaseURL,
			AppID:          defaultInstagramAppID,
			UserAgent:      defaultUserAgent,
			RequestTimeout: defaultInstagramTimeout,
			PageSize:       defaultInstagramPageSize,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			RunComplete:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
