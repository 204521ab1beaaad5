package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Locale          string

	// Push feeds. An empty URL disables the feed.
	EEWStreamURL           string
	QuakeStreamURL         string
	StreamReconnectBackoff time.Duration

	// P2PQuake history polling, a fallback for the quake stream.
	PollEnabled     bool
	BulletinPollURL string
	TsunamiPollURL  string
	PollInterval    time.Duration

	// JMA Atom feed. An empty URL disables it.
	JMAFeedURL      string
	JMAPollInterval time.Duration
	JMACacheSize    int

	// BouyomiChan speech sink.
	TTSEnabled bool
	TTSURL     string
	TTSTimeout time.Duration
	TTSVoice   int
	TTSVolume  int
	TTSSpeed   int
	TTSTone    int

	// Sound cues.
	AudioEnabled   bool
	SoundsDir      string
	SoundTablePath string

	DispatchQueueSize int

	// Optional relays. Empty brokers or URL disables the relay.
	KafkaBrokers      []string
	KafkaAlertTopic   string
	NATSURL           string
	NATSSubject       string
	NATSMaxReconnects int
	NATSReconnectWait time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	p := &parser{}
	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Locale:          sharedcfg.EnvOrDefault("LOCALE", "ja"),

		EEWStreamURL:           envOrEmpty("EEW_STREAM_URL", "wss://ws-api.wolfx.jp/jma_eew"),
		QuakeStreamURL:         envOrEmpty("QUAKE_STREAM_URL", "wss://api.p2pquake.net/v2/ws"),
		StreamReconnectBackoff: p.duration("STREAM_RECONNECT_BACKOFF", "5s"),

		PollEnabled:     p.bool("POLL_ENABLED", false),
		BulletinPollURL: sharedcfg.EnvOrDefault("BULLETIN_POLL_URL", "https://api.p2pquake.net/v2/history?codes=551&limit=1"),
		TsunamiPollURL:  sharedcfg.EnvOrDefault("TSUNAMI_POLL_URL", "https://api.p2pquake.net/v2/history?codes=552&limit=1"),
		PollInterval:    p.duration("POLL_INTERVAL", "2s"),

		JMAFeedURL:      envOrEmpty("JMA_FEED_URL", "https://www.data.jma.go.jp/developer/xml/feed/eqvol.xml"),
		JMAPollInterval: p.duration("JMA_POLL_INTERVAL", "60s"),
		JMACacheSize:    p.int("JMA_CACHE_SIZE", 256),

		TTSEnabled: p.bool("TTS_ENABLED", true),
		TTSURL:     sharedcfg.EnvOrDefault("TTS_URL", "http://localhost:50080/Talk"),
		TTSTimeout: p.duration("TTS_TIMEOUT", "2s"),
		TTSVoice:   p.int("TTS_VOICE", 0),
		TTSVolume:  p.int("TTS_VOLUME", -1),
		TTSSpeed:   p.int("TTS_SPEED", -1),
		TTSTone:    p.int("TTS_TONE", -1),

		AudioEnabled:   p.bool("AUDIO_ENABLED", true),
		SoundsDir:      sharedcfg.EnvOrDefault("SOUNDS_DIR", "./Sounds"),
		SoundTablePath: os.Getenv("SOUND_TABLE_PATH"),

		DispatchQueueSize: p.int("DISPATCH_QUEUE_SIZE", 64),

		KafkaBrokers:      sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic:   sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "quake-alerts"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubject:       sharedcfg.EnvOrDefault("NATS_SUBJECT", "quake.alerts"),
		NATSMaxReconnects: p.int("NATS_MAX_RECONNECTS", 60),
		NATSReconnectWait: p.duration("NATS_RECONNECT_WAIT", "2s"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Locale != "ja" && c.Locale != "en" {
		return fmt.Errorf("invalid LOCALE %q: must be ja or en", c.Locale)
	}
	if c.PollInterval < 2*time.Second || c.PollInterval > 60*time.Second {
		return errors.New("invalid POLL_INTERVAL: must be between 2s and 60s")
	}
	if c.JMAPollInterval < 2*time.Second || c.JMAPollInterval > 60*time.Second {
		return errors.New("invalid JMA_POLL_INTERVAL: must be between 2s and 60s")
	}
	if c.JMACacheSize < 1 {
		return errors.New("invalid JMA_CACHE_SIZE: must be positive")
	}
	if c.DispatchQueueSize < 1 {
		return errors.New("invalid DISPATCH_QUEUE_SIZE: must be positive")
	}
	if c.PollEnabled && (c.BulletinPollURL == "" || c.TsunamiPollURL == "") {
		return errors.New("POLL_ENABLED is true but a poll URL is empty")
	}
	if c.TTSEnabled && c.TTSURL == "" {
		return errors.New("TTS_ENABLED is true but TTS_URL is not set")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaAlertTopic == "" {
		return errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.NATSURL != "" && c.NATSSubject == "" {
		return errors.New("NATS_SUBJECT is required when NATS_URL is set")
	}
	return nil
}

// envOrEmpty is EnvOrDefault except that a variable set to the literal "off"
// yields "", which disables the feed it names.
func envOrEmpty(key, fallback string) string {
	v := sharedcfg.EnvOrDefault(key, fallback)
	if v == "off" {
		return ""
	}
	return v
}

// parser collects the first parse error so Load can build the struct in one
// literal.
type parser struct {
	err error
}

func (p *parser) duration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		p.fail(fmt.Errorf("invalid %s: must be a positive duration", key))
		return 0
	}
	return d
}

func (p *parser) bool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: must be true or false", key))
		return fallback
	}
	return b
}

func (p *parser) int(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s: must be an integer", key))
		return fallback
	}
	return n
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
