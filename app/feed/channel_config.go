package feed

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadChannelConfig reads the optional channel config file. An empty path
// yields an empty config.
func LoadChannelConfig(configFile string) (*ChannelConfig, error) {
	if configFile == "" {
		return &ChannelConfig{}, nil
	}

	channelConfig, err := parseChannelConfig(configFile)
	if err != nil {
		return nil, err
	}

	if err := validateChannelConfig(channelConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	slog.Debug("Channel configuration loaded", "file", configFile, "filters", len(channelConfig.Filters))

	return channelConfig, nil
}

func parseChannelConfig(configFile string) (*ChannelConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var channelConfig ChannelConfig
	if err := yaml.Unmarshal(data, &channelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &channelConfig, nil
}

func validateChannelConfig(channelConfig *ChannelConfig) error {
	for i, filter := range channelConfig.Filters {
		if !filterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
