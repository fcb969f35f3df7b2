package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/chatmate/chatmate/internal/biz/usecase"
	"github.com/chatmate/chatmate/internal/logger"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Gateway GatewayPrompts `yaml:"gateway"`
	Agent   AgentPrompts   `yaml:"agent"`
}

// GatewayPrompts contains the message rewriting and annotation prompts
type GatewayPrompts struct {
	Grammar          string            `yaml:"grammar"`
	Tone             string            `yaml:"tone"`
	ToneInstructions map[string]string `yaml:"tone_instructions"`
	ToneFallback     string            `yaml:"tone_fallback"`
	Analysis         string            `yaml:"analysis"`
}

// AgentPrompts contains the scripted agent prompts
type AgentPrompts struct {
	Suggestions string `yaml:"suggestions"`
	Starter     string `yaml:"starter"`
	GeneralHelp string `yaml:"general_help"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/chatmate/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data, loadedPath = b, p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read prompts config %s", configPath)
		}
		logger.Info("No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	logger.Infof("Loading prompts from: %s", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Gateway.Grammar, defaults.Gateway.Grammar)
	fill(&c.Gateway.Tone, defaults.Gateway.Tone)
	fill(&c.Gateway.ToneFallback, defaults.Gateway.ToneFallback)
	fill(&c.Gateway.Analysis, defaults.Gateway.Analysis)
	fill(&c.Agent.Suggestions, defaults.Agent.Suggestions)
	fill(&c.Agent.Starter, defaults.Agent.Starter)
	fill(&c.Agent.GeneralHelp, defaults.Agent.GeneralHelp)

	// Tones missing from the file keep their default instruction
	if c.Gateway.ToneInstructions == nil {
		c.Gateway.ToneInstructions = make(map[string]string)
	}
	for tone, instruction := range defaults.Gateway.ToneInstructions {
		if c.Gateway.ToneInstructions[tone] == "" {
			c.Gateway.ToneInstructions[tone] = instruction
		}
	}
}

// ToPromptConfig converts to the usecase prompt configuration
func (c *PromptsConfig) ToPromptConfig() usecase.PromptConfig {
	return usecase.PromptConfig{
		Grammar:          c.Gateway.Grammar,
		Tone:             c.Gateway.Tone,
		ToneInstructions: c.Gateway.ToneInstructions,
		ToneFallback:     c.Gateway.ToneFallback,
		Analysis:         c.Gateway.Analysis,
		Suggestions:      c.Agent.Suggestions,
		Starter:          c.Agent.Starter,
		GeneralHelp:      c.Agent.GeneralHelp,
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	d := usecase.DefaultPromptConfig
	instructions := make(map[string]string, len(d.ToneInstructions))
	for k, v := range d.ToneInstructions {
		instructions[k] = v
	}
	return &PromptsConfig{
		Gateway: GatewayPrompts{
			Grammar:          d.Grammar,
			Tone:             d.Tone,
			ToneInstructions: instructions,
			ToneFallback:     d.ToneFallback,
			Analysis:         d.Analysis,
		},
		Agent: AgentPrompts{
			Suggestions: d.Suggestions,
			Starter:     d.Starter,
			GeneralHelp: d.GeneralHelp,
		},
	}
}
