package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "fixctl":
		return fixctlTemplate, nil
	case "minimal":
		return minimalTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const fixctlTemplate = `admin_addr = "127.0.0.1:7070"
traffic_log = "traffic.log"
filter_tags = [8, 9, 49, 56, 52, 10, 60, 11, 43, 97]
cors_origins = ["http://localhost:3000"]

[connections.default]
address = "127.0.0.1:9878"
sender_comp_id = "Client2"
target_comp_id = "EMS"
begin_string = "FIX.4.2"
heartbeat = 30
timeout = "5s"

[connections.uat]
address = "uat.example.net:9878"
sender_comp_id = "Client2"
target_comp_id = "EMS-UAT"
heartbeat = 30
timeout = "10s"
max_connect_attempts = 5
security_mode = "production"

[connections.uat.tls]
enabled = true
ca_file = "/etc/fixctl/ca.pem"

[[kinds]]
name = "limit-day"
msg_type = "D"
required = [11, 54, 60, 40, 38, 44, 59]
[kinds.defaults]
59 = "0"
[[kinds.conditions]]
expr = 'Tag(59) == "0"'
message = "day order must have TimeInForce (59) = 0"
`

const minimalTemplate = `[connections.default]
address = "127.0.0.1:9878"
sender_comp_id = "Client2"
target_comp_id = "EMS"
`
