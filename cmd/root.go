package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is prepended to the upper-cased flag names to form the
// environment variables read by setAllConfig.
const envPrefix = "HLLCOUNT"

// NewRootCommand returns the hllcount command.  Output is written to stdout,
// logs and usage to stderr.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := NewCountCommand(stdin, stdout, stderr)

	rc := &cobra.Command{
		Use:   "hllcount [flags] [file...]",
		Short: "Estimate the number of distinct lines in the input.",
		Long: `hllcount estimates the number of distinct lines read from the given files,
or from standard input when no file is given, using a dense HyperLogLog.

Every flag may also be set through an environment variable named after the
flag with an HLLCOUNT_ prefix, e.g. HLLCOUNT_LOG2M=12, or through a TOML
configuration file passed with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			return setAllConfig(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Paths = args
			return c.Run(cmd.Context())
		},
	}

	flags := rc.Flags()
	flags.StringP("config", "c", "", "Configuration file to read from.")
	flags.IntVar(&c.Log2m, "log2m", c.Log2m, "Log-base-2 of the number of registers. [4, 18]")
	flags.IntVar(&c.Regwidth, "regwidth", c.Regwidth, "Bits per register. [4, 6]")
	flags.StringVar(&c.Hasher, "hasher", c.Hasher, "Hash function, one of: sip, xx.")
	flags.StringVar(&c.Compare, "compare", "", "File whose distinct lines are compared against the input.")
	flags.StringSliceVar(&c.Merge, "merge", nil, "Serialized Hlls to union into the count.")
	flags.StringVar(&c.Save, "save", "", "Write the resulting Hll to this path.  A .json suffix selects JSON.")
	flags.BoolVarP(&c.Verbose, "verbose", "v", false, "Enable debug logging.")

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a config file (if specified), and applies the configuration
// in that priority order. Since each flag in the set contains a pointer to
// where its value should be stored, setAllConfig can directly modify the value
// of each config variable.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}

		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// flags set on the command line take priority, and re-setting a slice
		// would append to it.
		if flagErr != nil || f.Changed {
			return
		}

		var value string
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
			if value == "" {
				return
			}
		} else {
			value = v.GetString(f.Name)
		}
		flagErr = f.Value.Set(value)
	})
	return flagErr
}
