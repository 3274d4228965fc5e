package actors

import (
	"os"
	"time"

	"github.com/spf13/viper"
	"vaultconnector/engine/library"
)

// DefaultConnectorAddress is where the connector is deployed unless configured otherwise.
const DefaultConnectorAddress = "0x0c0ec7020000000000000000000000000000c0c0"

// SetDefaults installs every setting the engine reads.
func SetDefaults(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		library.LogCLI(err.Error(), 1)
	}
	config.SetDefault("rootDir", homeDir+"/vaultconnector/")
	config.SetDefault("firstRun", true)
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("chainID", uint64(1))
	config.SetDefault("domainName", "Vault Connector")
	config.SetDefault("connectorAddress", DefaultConnectorAddress)
	config.SetDefault("maxCallDepth", 10)
	config.SetDefault("deadlockTimeout", 30*time.Second)
	config.SetDefault("persistState", true)
}

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) {
	SetDefaults(config)
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err := config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), 4)
	}
	// Create our working directory and config file if not exist
	initRootDir(config)
	touch(config.GetString("rootDir") + "config.yaml")
	err = config.WriteConfig()
	if err != nil {
		library.LogCLI(err.Error(), 1)
	}
	library.SetLogLevel(config.GetInt("logLevel"))
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			library.LogCLI(err, 1)
		}
	}
}

func touch(name string) {
	f, err := os.OpenFile(name, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		library.LogCLI(err, 1)
		return
	}
	f.Close()
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	if conf == nil {
		conf = viper.New()
		SetDefaults(conf)
	}
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}
