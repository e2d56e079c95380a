package ircbot

import (
	"crypto/tls"
	"os"
	"strconv"
	"time"

	"github.com/gissleh/ircbot/capability"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var supportedCaps = []string{
	"server-time",
	"cap-notify",
	"multi-prefix",
	"userhost-in-names",
	"account-notify",
	"away-notify",
	"extended-join",
	"chghost",
	"account-tag",
}

// The Config for an IRC client.
type Config struct {
	// The nick that you go by. By default it's "IrcUser"
	Nick string `yaml:"nick"`

	// Alternatives are a list of nicks to try if Nick is occupied, in order of preference. By default
	// it's your nick with numbers 1 through 9.
	Alternatives []string `yaml:"alternatives"`

	// User is sent along with all messages and commonly shown before the @ on join, quit, etc....
	// Some servers tack on a ~ in front of it if you do not have an ident server.
	User string `yaml:"user"`

	// RealName is shown in WHOIS as your real name. By default "..."
	RealName string `yaml:"realName"`

	// The Password used upon connection. This is not your NickServ/SASL password!
	Password string `yaml:"password"`

	// Server is the address used by Connect when it's given none, e.g. "irc.example.com:6697".
	Server string `yaml:"server"`

	// TLS connects with TLS from the start.
	TLS bool `yaml:"tls"`

	// SkipSSLVerification disables SSL certificate verification. Do not do this
	// in production.
	SkipSSLVerification bool `yaml:"skipSslVerification"`

	// STARTTLS upgrades a cleartext connection during capability negotiation. The
	// connection fails if the server can't do it.
	STARTTLS bool `yaml:"starttls"`

	// SASL logs in with SASL PLAIN if set.
	SASL *SASLConfig `yaml:"sasl"`

	// Capabilities to request if the server has them. Missing ones are ignored. By
	// default it's every capability the client knows how to use.
	Capabilities []string `yaml:"capabilities"`

	// DisableCAP skips capability negotiation entirely.
	DisableCAP bool `yaml:"disableCap"`

	// Channels are joined once registered.
	Channels []string `yaml:"channels"`

	// IdleTimeout is how long to wait for a line before sending a PING. By default
	// it's five minutes.
	IdleTimeout time.Duration `yaml:"idleTimeout"`

	// SendRate is how many queued lines are sent per second, with bursts of up to
	// SendBurst lines. By default it's 2 and 2.
	SendRate  float64 `yaml:"sendRate"`
	SendBurst int     `yaml:"sendBurst"`

	// Dispatch selects how listeners are run. By default it's DispatchSync.
	Dispatch DispatchMode `yaml:"dispatch"`

	// Locale is the BCP 47 tag used when comparing nicks and channel names.
	Locale string `yaml:"locale"`

	// Version is the reply to CTCP VERSION.
	Version string `yaml:"version"`

	// Logger is the parent logger. By default it logs to stderr.
	Logger log15.Logger `yaml:"-"`

	// Registerer gets the client's metrics. They're not registered anywhere if
	// it's nil.
	Registerer prometheus.Registerer `yaml:"-"`

	// TLSConfig is used for both TLS and STARTTLS.
	TLSConfig *tls.Config `yaml:"-"`

	// CapHandlers replaces the capability handlers made from the other options. It's
	// called once per connection.
	CapHandlers func() []capability.Handler `yaml:"-"`
}

// SASLConfig is the credentials for SASL PLAIN.
type SASLConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// IgnoreFail continues without logging in if authentication fails.
	IgnoreFail bool `yaml:"ignoreFail"`
}

// WithDefaults returns the config with the default values
func (config Config) WithDefaults() Config {
	if config.Nick == "" {
		config.Nick = "IrcUser"
	}
	if config.User == "" {
		config.User = "IrcUser"
	}
	if config.RealName == "" {
		config.RealName = "..."
	}

	if len(config.Alternatives) == 0 {
		config.Alternatives = make([]string, 9)
		for i := 0; i < 9; i++ {
			config.Alternatives[i] = config.Nick + strconv.FormatInt(int64(i+1), 10)
		}
	}

	if config.Capabilities == nil {
		config.Capabilities = append([]string{}, supportedCaps...)
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = time.Minute * 5
	}
	if config.SendRate <= 0 {
		config.SendRate = 2
	}
	if config.SendBurst <= 0 {
		config.SendBurst = 2
	}
	if config.Dispatch == "" {
		config.Dispatch = DispatchSync
	}
	if config.Version == "" {
		config.Version = "github.com/gissleh/ircbot v1.0"
	}
	if config.Logger == nil {
		config.Logger = log15.New("module", "ircbot")
	}

	return config
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "irc: could not read config")
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(err, "irc: could not parse %s", path)
	}

	return config, nil
}

func (config *Config) validate() error {
	switch config.Dispatch {
	case DispatchSync, DispatchParallel:
	default:
		return errors.Errorf("irc: unknown dispatch mode %q", config.Dispatch)
	}

	if config.TLS && config.STARTTLS {
		return errors.New("irc: tls and starttls can't both be enabled")
	}

	if _, err := config.locale(); err != nil {
		return err
	}

	return nil
}

func (config *Config) locale() (language.Tag, error) {
	if config.Locale == "" {
		return language.Und, nil
	}

	tag, err := language.Parse(config.Locale)
	if err != nil {
		return language.Und, errors.Wrapf(err, "irc: invalid locale %q", config.Locale)
	}

	return tag, nil
}

func (config *Config) tlsConfig() *tls.Config {
	if config.TLSConfig != nil {
		return config.TLSConfig
	}

	return &tls.Config{InsecureSkipVerify: config.SkipSSLVerification}
}

// capHandlers makes a fresh set of handlers for one negotiation.
func (config *Config) capHandlers() []capability.Handler {
	if config.CapHandlers != nil {
		return config.CapHandlers()
	}

	handlers := make([]capability.Handler, 0, len(config.Capabilities)+2)
	for _, name := range config.Capabilities {
		if name == "sasl" || name == "tls" {
			continue
		}

		handlers = append(handlers, capability.Enable(name, true))
	}

	if config.SASL != nil {
		handlers = append(handlers, &capability.SASLHandler{
			Username:   config.SASL.Username,
			Password:   config.SASL.Password,
			IgnoreFail: config.SASL.IgnoreFail,
		})
	}

	if config.STARTTLS {
		handlers = append(handlers, &capability.TLSHandler{Config: config.tlsConfig()})
	}

	return handlers
}
