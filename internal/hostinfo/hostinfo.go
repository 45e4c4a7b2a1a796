// Package hostinfo supplies the host identity bound into issued certificates.
package hostinfo

import (
	"fmt"
	"net"
	"os"
)

// HostInfo identifies the host a certificate is issued to.
type HostInfo struct {
	Name string
	IP   net.IP
	MAC  string
}

// Provider returns identity metadata for the host requesting a certificate.
// The organizational directory backing this in production is out of scope;
// the trust engine only consumes this narrow read contract.
type Provider interface {
	Info() (HostInfo, error)
}

// Static returns fixed host information. Used in tests and single-host
// deployments where the identity is configured.
type Static struct {
	Host HostInfo
}

var _ Provider = Static{}

func (s Static) Info() (HostInfo, error) {
	return s.Host, nil
}

// Local derives host information from the operating system: hostname plus
// the first non-loopback interface with a hardware address.
type Local struct{}

var _ Provider = Local{}

func (Local) Info() (HostInfo, error) {
	name, err := os.Hostname()
	if err != nil {
		return HostInfo{}, fmt.Errorf("failed to resolve hostname: %w", err)
	}

	info := HostInfo{Name: name}

	ifaces, err := net.Interfaces()
	if err != nil {
		return info, nil // hostname alone is still a usable identity
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if info.MAC == "" && iface.HardwareAddr != nil {
			info.MAC = iface.HardwareAddr.String()
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if info.IP == nil {
				info.IP = ipNet.IP
			}
		}
		if info.IP != nil && info.MAC != "" {
			break
		}
	}

	return info, nil
}
