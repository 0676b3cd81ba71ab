/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

const defaultIPAddress = "127.0.0.1"

// LocalIP returns the first non-loopback IPv4 address of the host, falling
// back to 127.0.0.1 when there is none.
func LocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return defaultIPAddress, fmt.Errorf("error getting interface addresses: %w", err)
	}

	return pickIPv4(addrs), nil
}

func pickIPv4(addrs []net.Addr) string {
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return defaultIPAddress
}

// CheckRights fails unless the process runs as root. The Snips configuration
// under /etc and the restart script both need it.
func CheckRights() error {
	return checkUID(unix.Geteuid())
}

func checkUID(uid int) error {
	if uid != 0 {
		return ErrNotRoot
	}

	return nil
}
