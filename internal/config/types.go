package config

type Config struct {
	Gateway GatewayConfig `yaml:"gateway" json:"gateway"`
	Client  ClientConfig  `yaml:"client" json:"client"`
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	Uploads UploadsConfig `yaml:"uploads" json:"uploads"`
}

type GatewayConfig struct {
	Port    int    `yaml:"port" json:"port"`
	Welcome string `yaml:"welcome" json:"welcome"` // system greeting pushed on connect; empty disables
}

type ClientConfig struct {
	GatewayURL       string `yaml:"gatewayURL" json:"gatewayURL"`
	ReconnectDelayMs int    `yaml:"reconnectDelayMs" json:"reconnectDelayMs"`
	MaxReconnects    int    `yaml:"maxReconnects" json:"maxReconnects"`
}

type CatalogConfig struct {
	Path string `yaml:"path" json:"path"` // sqlite file; relative paths resolve under the data dir
	Seed bool   `yaml:"seed" json:"seed"` // load the demo catalog when the table is empty
}

type UploadsConfig struct {
	Dir         string `yaml:"dir" json:"dir"`                 // attachment store; empty uses home/tmp/uploads
	RetainHours int    `yaml:"retainHours" json:"retainHours"` // stored attachments older than this are swept
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port:    18900,
			Welcome: "Welcome! I'm your shopping assistant. Ask me anything about our products.",
		},
		Client: ClientConfig{
			GatewayURL:       "ws://localhost:18900/ws/chat",
			ReconnectDelayMs: 1000,
			MaxReconnects:    5,
		},
		Catalog: CatalogConfig{
			Path: "catalog.db",
			Seed: true,
		},
		Uploads: UploadsConfig{
			RetainHours: 24,
		},
	}
}
