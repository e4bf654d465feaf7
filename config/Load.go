package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samuelfneumann/rlgov/agent"
	"github.com/samuelfneumann/rlgov/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/rlgov/environment"
	"github.com/samuelfneumann/rlgov/initwfn"
)

// EnvPrefix prefixes the environment variables read by Load. Nested
// keys use underscores, e.g. RLGOV_EPSILON_START.
const EnvPrefix = "RLGOV"

// Defaults returns the defaults of variant. The tabular variants follow
// the simplest governors, the deepq variant follows the function
// approximation governor.
func Defaults(variant agent.Type) map[string]interface{} {
	d := map[string]interface{}{
		"variant":              string(variant),
		"cores":                []int{0},
		"learningRate":         0.1,
		"discount":             0.9,
		"epsilon.schedule":     Fixed,
		"epsilon.start":        0.1,
		"epsilon.end":          0.1,
		"epsilon.decay":        1.0,
		"replay.capacity":      0,
		"replay.batchSize":     0,
		"targetUpdateInterval": 0,
		"hiddenSize":           0,
		"outputRule":           string(deepq.HiddenBias),
		"initializer":          string(initwfn.Uniform),
		"numStates":            5,
		"actions":              3,
		"reward":               string(environment.Utilization),
		"energyThreshold":      environment.DefaultEnergyThreshold,
		"settleInterval":       time.Duration(0),
		"maxSettle":            100 * time.Millisecond,
		"seed":                 uint64(1),
		"interval":             100 * time.Millisecond,
		"steps":                1000,
		"procfs":               "/proc",
		"sysfs":                "/sys",
		"metricsAddr":          "",
	}

	switch variant {
	case agent.DoubleQLearning:
		d["numStates"] = 10
		d["actions"] = 5
		d["reward"] = string(environment.Energy)

	case agent.DeepQ:
		d["learningRate"] = 0.001
		d["discount"] = 0.99
		d["epsilon.schedule"] = Decaying
		d["epsilon.start"] = 1.0
		d["epsilon.end"] = 0.01
		d["epsilon.decay"] = 0.995
		d["replay.capacity"] = 1000
		d["replay.batchSize"] = 32
		d["targetUpdateInterval"] = 100
		d["hiddenSize"] = 32
		d["numStates"] = 10
		d["actions"] = 5
		d["settleInterval"] = 10 * time.Millisecond
	}
	return d
}

// flags maps each configuration key to its command line flag
var flags = map[string]string{
	"variant":              "variant",
	"cores":                "cores",
	"learningRate":         "learning-rate",
	"discount":             "discount",
	"epsilon.schedule":     "epsilon-schedule",
	"epsilon.start":        "epsilon-start",
	"epsilon.end":          "epsilon-end",
	"epsilon.decay":        "epsilon-decay",
	"replay.capacity":      "replay-capacity",
	"replay.batchSize":     "batch-size",
	"targetUpdateInterval": "target-update-interval",
	"hiddenSize":           "hidden-size",
	"outputRule":           "output-rule",
	"initializer":          "initializer",
	"numStates":            "num-states",
	"actions":              "actions",
	"reward":               "reward",
	"energyThreshold":      "energy-threshold",
	"settleInterval":       "settle-interval",
	"maxSettle":            "max-settle",
	"seed":                 "seed",
	"interval":             "interval",
	"steps":                "steps",
	"procfs":               "procfs",
	"sysfs":                "sysfs",
	"metricsAddr":          "metrics-addr",
}

// AddFlags registers a flag for every configuration key on fs. Flag
// defaults are only used for documentation; unset flags never override
// the defaults of the selected variant.
func AddFlags(fs *pflag.FlagSet) {
	d := Defaults(agent.QLearning)

	fs.String(flags["variant"], d["variant"].(string),
		fmt.Sprintf("learning variant, one of %v", agent.Types()))
	fs.IntSlice(flags["cores"], d["cores"].([]int), "cores to govern")
	fs.Float64(flags["learningRate"], 0, "learning rate α")
	fs.Float64(flags["discount"], 0, "discount factor γ")
	fs.String(flags["epsilon.schedule"], "",
		fmt.Sprintf("exploration schedule, %q or %q", Fixed, Decaying))
	fs.Float64(flags["epsilon.start"], 0, "initial exploration rate")
	fs.Float64(flags["epsilon.end"], 0, "floor of a decaying exploration rate")
	fs.Float64(flags["epsilon.decay"], 0,
		"multiplicative decay of the exploration rate per tick")
	fs.Int(flags["replay.capacity"], 0, "experience replay capacity (deepq)")
	fs.Int(flags["replay.batchSize"], 0, "training batch size (deepq)")
	fs.Int(flags["targetUpdateInterval"], 0,
		"learned ticks between target network refreshes (deepq)")
	fs.Int(flags["hiddenSize"], 0, "hidden units (deepq)")
	fs.String(flags["outputRule"], "", fmt.Sprintf("output layer update rule, "+
		"%q or %q (deepq)", deepq.HiddenBias, deepq.HiddenActivation))
	fs.String(flags["initializer"], "", "weight initializer (deepq)")
	fs.Int(flags["numStates"], 0, "number of frequency bins")
	fs.Int(flags["actions"], 0, "size of the action set, 3 or 5")
	fs.String(flags["reward"], "", fmt.Sprintf("reward scheme, %q or %q",
		environment.Utilization, environment.Energy))
	fs.Float64(flags["energyThreshold"], 0,
		"energy below which the energy reward is 0")
	fs.Duration(flags["settleInterval"], 0,
		"wait between actuating and sampling the next state")
	fs.Duration(flags["maxSettle"], 0, "upper bound of the settle wait")
	fs.Uint64(flags["seed"], 0, "random seed")
	fs.Duration(flags["interval"], 0, "tick period of the run command")
	fs.Int(flags["steps"], 0, "ticks per core of the simulate command")
	fs.String(flags["procfs"], d["procfs"].(string), "procfs mount point")
	fs.String(flags["sysfs"], d["sysfs"].(string), "sysfs mount point")
	fs.String(flags["metricsAddr"], "",
		"address to serve Prometheus metrics on, disabled when empty")
}

// Load builds a Config from v. The flags registered by AddFlags on fs
// are bound when fs is not nil, and the YAML file at path is read when
// path is not empty.
func Load(v *viper.Viper, fs *pflag.FlagSet, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flags {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: %w", err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: could not read %s: %w",
				path, err)
		}
	}

	// The variant decides every other default
	v.SetDefault("variant", string(agent.QLearning))
	variant, err := agent.ParseType(v.GetString("variant"))
	if err != nil {
		return Config{}, err
	}
	for key, value := range Defaults(variant) {
		v.SetDefault(key, value)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
