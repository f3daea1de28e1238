package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"

	"github.com/privacy-pool-network/pool-daemon/internal/core/application"
)

const (
	// HTTPListeningPortKey is the port where the HTTP relayer interface will
	// listen on
	HTTPListeningPortKey = "HTTP_LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// ConfigPathKey is the path of the yaml or json file listing the chains
	// and assets the relayer serves
	ConfigPathKey = "CONFIG_PATH"
	// QuoteExpirationKey is the validity in seconds of signed fee commitments
	QuoteExpirationKey = "QUOTE_EXPIRATION"
	// BlockRangeKey is the max number of blocks scanned by a single log query
	BlockRangeKey = "BLOCK_RANGE"
	// RPCRateLimitKey is the max number of log queries per second per chain
	RPCRateLimitKey = "RPC_RATE_LIMIT"
	// VerifyingKeyKey is the path of the Groth16 verifying key of the circuit
	VerifyingKeyKey = "VERIFYING_KEY_PATH"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines interval for printing basic daemon statistics
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation       = "db"
	CircuitsLocation = "circuits"
	ProfilerLocation = "stats"

	configFile = "config.yaml"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("pool-daemon", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("POOL")
	vip.AutomaticEnv()

	vip.SetDefault(HTTPListeningPortKey, 3000)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(QuoteExpirationKey, 20)
	vip.SetDefault(BlockRangeKey, 10000)
	vip.SetDefault(RPCRateLimitKey, 10)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	// Paths default to the datadir, which may itself come from env.
	datadir := vip.GetString(DatadirKey)
	vip.SetDefault(ConfigPathKey, filepath.Join(datadir, configFile))
	vip.SetDefault(
		VerifyingKeyKey, filepath.Join(datadir, CircuitsLocation, "withdraw.vk"),
	)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetDuration returns the value of a key expressed in seconds.
func GetDuration(key string) time.Duration {
	return time.Duration(vip.GetInt64(key)) * time.Second
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDatadir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetChains reads the chains the relayer serves from the config file.
func GetChains() ([]ChainConfig, error) {
	return LoadChains(GetString(ConfigPathKey))
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if _, ok := application.SupportedDBType[GetString(DBTypeKey)]; !ok {
		return fmt.Errorf("unsupported db type %s", GetString(DBTypeKey))
	}

	if GetInt(QuoteExpirationKey) <= 0 {
		return fmt.Errorf("%s must be a positive number of seconds", QuoteExpirationKey)
	}
	if GetInt(BlockRangeKey) <= 0 {
		return fmt.Errorf("%s must be positive", BlockRangeKey)
	}
	if GetInt(RPCRateLimitKey) <= 0 {
		return fmt.Errorf("%s must be positive", RPCRateLimitKey)
	}

	if GetString(VerifyingKeyKey) == "" {
		return fmt.Errorf("missing verifying key path")
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	if GetBool(EnableProfilerKey) {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
