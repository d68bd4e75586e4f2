// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/veng/device"
	"github.com/devblok/veng/internal/environ"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Application ApplicationConfiguration
	Instance    InstanceConfiguration
	Renderer    RendererConfiguration
	Time        TimeConfiguration

	LogLevel log.Level
}

// ApplicationConfiguration is the metadata handed to the driver
// when the instance is created
type ApplicationConfiguration struct {
	Name          string
	Version       device.Version
	EngineName    string
	EngineVersion device.Version
}

// InstanceConfiguration is used to configure the driver instance
type InstanceConfiguration struct {
	// Validation requests the validation layer and the debug report
	// extension. Missing support only disables diagnostics.
	Validation      bool
	ValidationLayer string

	// Portability enables portability enumeration when the driver has it.
	Portability bool

	// Extensions and Layers are required on top of what the window needs.
	Extensions []string
	Layers     []string
}

// RendererConfiguration is used to configure the window and the device
type RendererConfiguration struct {
	DeviceExtensions []string

	Title        string
	ScreenWidth  uint32
	ScreenHeight uint32
	Monitor      int
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between event polls in milliseconds
	EventPollDelay int
}

// APIVersion is the driver API version the engine is written against.
var APIVersion = device.Version{Major: 1, Minor: 0, Patch: 0}

// Defaults is the box holding the bundled default.env.
var Defaults = packr.NewBox("./config")

const defaultsFile = "default.env"

// Configuration keys.
const (
	KeyAppName         = "VENG_APP_NAME"
	KeyAppVersion      = "VENG_APP_VERSION"
	KeyEngineName      = "VENG_ENGINE_NAME"
	KeyEngineVersion   = "VENG_ENGINE_VERSION"
	KeyValidation      = "VENG_VALIDATION"
	KeyValidationLayer = "VENG_VALIDATION_LAYER"
	KeyPortability     = "VENG_PORTABILITY"
	KeyWindowTitle     = "VENG_WINDOW_TITLE"
	KeyScreenWidth     = "VENG_SCREEN_WIDTH"
	KeyScreenHeight    = "VENG_SCREEN_HEIGHT"
	KeyMonitor         = "VENG_MONITOR"
	KeyFPS             = "VENG_FPS"
	KeyEventPollDelay  = "VENG_EVENT_POLL_DELAY"
	KeyLogLevel        = "VENG_LOG_LEVEL"
)

func defaults() (map[string]string, error) {
	content, err := Defaults.FindString(defaultsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading bundled %s", defaultsFile)
	}
	values, err := godotenv.Parse(strings.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing bundled %s", defaultsFile)
	}
	return values, nil
}

// DefaultConfiguration returns the bundled defaults, ignoring user files
// and the process environment.
func DefaultConfiguration() Configuration {
	values, err := defaults()
	if err != nil {
		panic(err)
	}
	cfg, err := parseConfiguration(func(key string) string { return values[key] })
	if err != nil {
		panic(err)
	}
	return cfg
}

// DotEnvFile is the file in the working directory layered between the
// bundled defaults and the files given to LoadConfiguration.
const DotEnvFile = ".env"

// LoadConfiguration layers the bundled defaults, then DotEnvFile when it
// exists, then each of files in order, then the process environment.
// Every resolved value is published through envy so the rest of the
// process sees the same settings.
func LoadConfiguration(files ...string) (Configuration, error) {
	values, err := defaults()
	if err != nil {
		return Configuration{}, err
	}

	dotenv, err := godotenv.Read(DotEnvFile)
	switch {
	case os.IsNotExist(err):
		dotenv = nil
	case err != nil:
		return Configuration{}, errors.Wrapf(err, "reading %s", DotEnvFile)
	}
	for k, v := range dotenv {
		values[k] = v
	}

	for _, file := range files {
		overrides, err := godotenv.Read(file)
		if err != nil {
			return Configuration{}, errors.Wrapf(err, "reading %s", file)
		}
		for k, v := range overrides {
			values[k] = v
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := values[k]
		if env, ok := lookupEnv(k, dotenv); ok {
			v = env
		}
		envy.Set(k, v)
	}

	return parseConfiguration(func(key string) string { return envy.Get(key, "") })
}

// lookupEnv returns the process environment value of key. envy copies
// DotEnvFile into the environment from its init, so a value equal to the
// file's is only trusted when it was there at startup.
func lookupEnv(key string, dotenv map[string]string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if fromFile, inFile := dotenv[key]; inFile && fromFile == v {
		v, ok = environ.Startup[key]
	}
	return v, ok
}

func parseConfiguration(get func(string) string) (Configuration, error) {
	p := parser{get: get}
	cfg := Configuration{
		Application: ApplicationConfiguration{
			Name:          get(KeyAppName),
			Version:       p.version(KeyAppVersion),
			EngineName:    get(KeyEngineName),
			EngineVersion: p.version(KeyEngineVersion),
		},
		Instance: InstanceConfiguration{
			Validation:      p.boolean(KeyValidation),
			ValidationLayer: get(KeyValidationLayer),
			Portability:     p.boolean(KeyPortability),
		},
		Renderer: RendererConfiguration{
			DeviceExtensions: append([]string(nil), device.RequiredDeviceExtensions...),
			Title:            get(KeyWindowTitle),
			ScreenWidth:      uint32(p.positive(KeyScreenWidth)),
			ScreenHeight:     uint32(p.positive(KeyScreenHeight)),
			Monitor:          p.integer(KeyMonitor),
		},
		Time: TimeConfiguration{
			FramesPerSecond: p.integer(KeyFPS),
			EventPollDelay:  p.positive(KeyEventPollDelay),
		},
		LogLevel: p.level(KeyLogLevel),
	}
	if cfg.Instance.ValidationLayer == "" {
		cfg.Instance.ValidationLayer = device.ValidationLayer
	}
	return cfg, p.err
}

// parser remembers the first failure so the configuration can be
// assembled in one expression.
type parser struct {
	get func(string) string
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = errors.Wrapf(err, "%s=%q", key, value)
	}
}

func (p *parser) boolean(key string) bool {
	value := p.get(key)
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return b
}

func (p *parser) integer(key string) int {
	value := p.get(key)
	i, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return 0
	}
	if i < 0 {
		p.fail(key, value, errors.New("must not be negative"))
	}
	return i
}

func (p *parser) positive(key string) int {
	i := p.integer(key)
	if i == 0 {
		p.fail(key, p.get(key), errors.New("must be positive"))
	}
	return i
}

func (p *parser) version(key string) device.Version {
	value := p.get(key)
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		p.fail(key, value, errors.New("expected major.minor.patch"))
		return device.Version{}
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			p.fail(key, value, errors.Newf("bad version component %q", part))
			return device.Version{}
		}
		nums[i] = n
	}
	return device.Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}
}

func (p *parser) level(key string) log.Level {
	value := p.get(key)
	lvl, err := log.ParseLevel(value)
	if err != nil {
		p.fail(key, value, err)
		return log.InfoLevel
	}
	return lvl
}
