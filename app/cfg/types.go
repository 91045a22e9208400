package cfg

import "time"

type Cfg struct {
	// Discord configuration
	DiscordToken string
	ChannelID    string

	// Server configuration
	Port    string
	BaseUrl string

	// Refresh configuration
	RefreshInterval int
	MessageLimit    int
	UpstreamTimeout int
	PreviewTimeout  int
	PreviewWorkers  int
	ChannelConfig   string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetRefreshInterval() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

func (c *Cfg) GetUpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeout) * time.Second
}

func (c *Cfg) GetPreviewTimeout() time.Duration {
	return time.Duration(c.PreviewTimeout) * time.Second
}
