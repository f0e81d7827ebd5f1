package config

import (
	"os"
	"strconv"
	"time"
)

// Client environment variables keep the names deployed clients already use.
const (
	EnvServerHost   = "SYS_UID_SERVER_HOST_NAME"
	EnvServerPort   = "SYS_UID_SERVER_PORT"
	EnvFailsafeHost = "SYS_UID_FAILSAFE_SERVER_HOST_NAME"
	EnvFailsafePort = "SYS_UID_FAILSAFE_SERVER_PORT"
)

// FromEnv overlays UID_* and SYS_UID_* environment variables onto cfg.
// Unparseable values are ignored.
func FromEnv(cfg *File) {
	s := &cfg.Server
	setString(&s.Namespace, "UID_NAMESPACE")
	setString(&s.Backend, "UID_BACKEND")
	setString(&s.PositionFile, "UID_POSITION_FILE")
	setString(&s.DataDir, "UID_DATA_DIR")
	setString(&s.Fsync, "UID_FSYNC")
	setUint(&s.IndexStart, "UID_INDEX_START")
	setUint(&s.IndexSize, "UID_INDEX_SIZE")
	setUint(&s.MaxBlockSize, "UID_MAX_BLOCK_SIZE")
	setUint(&s.UpdateIncrement, "UID_UPDATE_INCREMENT")
	setString(&s.Host, "UID_HOST")
	setInt(&s.Port, "UID_PORT")
	setString(&s.HTTPAddr, "UID_HTTP_ADDR")
	setString(&s.GRPCAddr, "UID_GRPC_ADDR")
	setDuration(&s.ReadTimeout, "UID_READ_TIMEOUT")
	setDuration(&s.WriteTimeout, "UID_WRITE_TIMEOUT")
	setString(&s.Log.Level, "UID_LOG_LEVEL")
	setString(&s.Log.Format, "UID_LOG_FORMAT")

	c := &cfg.Client
	setString(&c.PrimaryHost, EnvServerHost)
	setInt(&c.PrimaryPort, EnvServerPort)
	setString(&c.FailsafeHost, EnvFailsafeHost)
	setInt(&c.FailsafePort, EnvFailsafePort)
	setDuration(&c.Timeout, "UID_CLIENT_TIMEOUT")
	setUint(&c.BlockSize, "UID_BLOCK_SIZE")
	setString(&c.HTTPServers, "UID_HTTP_SERVERS")
	setString(&c.Namespace, "UID_CLIENT_NAMESPACE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
