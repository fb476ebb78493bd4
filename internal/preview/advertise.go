package preview

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const ServiceType = "_focusframe._tcp"

// Advertise announces the preview server over mDNS until ctx is cancelled.
func Advertise(ctx context.Context, name string, port int) error {
	server, err := zeroconf.Register(name, ServiceType, "local.", port, []string{"path=/ws"}, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()
	return nil
}

// PortOf extracts the TCP port a listener is bound to.
func PortOf(addr net.Addr) (int, error) {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}
