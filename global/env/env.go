package env

import (
	"net"
	"os"
)

const (
	ConfigPathEnv  = "WEBSERVER_CONFIG_PATH"
	defaultConfDir = "./files"
)

var (
	LocalhostIP string
	ConfigPath  string
)

func init() {
	findLocalHostIP()
	initConfigPath()
}

func initConfigPath() {
	ConfigPath = os.Getenv(ConfigPathEnv)
	if ConfigPath == "" {
		ConfigPath = defaultConfDir
	}
}

func findLocalHostIP() {
	LocalhostIP = "127.0.0.1"

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return
	}

	for _, address := range addrs {
		// skip loopback
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				LocalhostIP = ipnet.IP.String()
			}
		}
	}
}

func GetLocalHostIP() string {
	return LocalhostIP
}

func SetDefaultConfigPath(path string) {
	ConfigPath = path
}
