package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/revxslt/match"
)

const DefaultConfigPath = ".revxslt.yaml"

// Config describes one extraction job: which template to reverse and how.
type Config struct {
	Name string `yaml:"name"`
	// Template is the XSLT stylesheet path, relative to the configuration file.
	Template string `yaml:"template"`
	// Constraints maps placeholder names to regular expressions their
	// captured text must match.
	Constraints map[string]string `yaml:"constraints,omitempty"`
	// Budget bounds the search steps spent on one document. Zero keeps the
	// default.
	Budget      int      `yaml:"budget,omitempty"`
	StrictXPath bool     `yaml:"strict_xpath,omitempty"`
	CacheDir    string   `yaml:"cache_dir,omitempty"`
	Store       string   `yaml:"store,omitempty"`
	Ignore      []string `yaml:"ignore,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Name:     "revxslt",
		Template: "template.xsl",
		Constraints: map[string]string{
			"example_number": `\d+`,
		},
		Budget:   match.DefaultBudget,
		CacheDir: ".revxslt-cache",
	}
}

// Validate checks the fields New relies on.
func (c Config) Validate() error {
	if c.Template == "" {
		return fmt.Errorf("configuration %q: no template", c.Name)
	}
	if c.Budget < 0 {
		return fmt.Errorf("configuration %q: negative budget %d", c.Name, c.Budget)
	}
	if _, err := match.NewConstraints(c.Constraints); err != nil {
		return fmt.Errorf("configuration %q: %w", c.Name, err)
	}
	return nil
}

func ParseConfigurationFile(configurationPath string) (Config, error) {
	var config Config

	f, err := os.Open(configurationPath)
	if err != nil {
		return config, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return config, fmt.Errorf("error decoding %s: %w", configurationPath, err)
	}

	return config, nil
}

func WriteConfigurationFile(configurationPath string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	f, err := os.Create(configurationPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	return err
}
