package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"timestick/internal/collector"
	"timestick/internal/model"

	gnet "github.com/shirou/gopsutil/v4/net"
)

// DefaultDriverSignatures match the ASIX chips the stick is built on.
var DefaultDriverSignatures = []string{"ax88179", "ax88279"}

// LinkSensor finds the stick among the host interfaces and reports its
// driver and link state from sysfs, falling back to ethtool.
type LinkSensor struct {
	sysfsRoot  string
	signatures []string

	interfaces func(ctx context.Context) (gnet.InterfaceStatList, error)
	ethtool    func(ctx context.Context, iface string) (map[string]string, error)
}

func NewLinkSensor(signatures []string) *LinkSensor {
	if len(signatures) == 0 {
		signatures = DefaultDriverSignatures
	}
	lower := make([]string, len(signatures))
	for i, s := range signatures {
		lower[i] = strings.ToLower(s)
	}
	return &LinkSensor{
		sysfsRoot:  defaultSysfsRoot,
		signatures: lower,
		interfaces: gnet.InterfacesWithContext,
		ethtool:    ethtoolInfo,
	}
}

func (s *LinkSensor) Name() string {
	return "Link"
}

func (s *LinkSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *LinkSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *LinkSensor) Discover(ctx context.Context) (string, error) {
	ifaces, err := s.interfaces(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, ifc := range ifaces {
		if !slices.Contains(ifc.Flags, "up") || slices.Contains(ifc.Flags, "loopback") {
			continue
		}
		driver, _, err := s.driverInfo(ctx, ifc.Name)
		if err != nil {
			continue
		}
		if s.matches(driver) {
			return ifc.Name, nil
		}
	}
	return "", collector.ErrDeviceNotFound
}

func (s *LinkSensor) matches(driver string) bool {
	driver = strings.ToLower(driver)
	for _, sig := range s.signatures {
		if strings.Contains(driver, sig) {
			return true
		}
	}
	return false
}

func (s *LinkSensor) Describe(ctx context.Context, iface string, prev model.DeviceInfo) (model.DeviceInfo, error) {
	next := prev
	next.Interface = iface

	netDir := filepath.Join(s.sysfsRoot, "class", "net", iface)
	state, err := readTrimmed(filepath.Join(netDir, "operstate"))
	if err != nil {
		return prev, fmt.Errorf("failed to read link state of %s: %w", iface, err)
	}

	next.IsOnline = state == "up"
	next.ConnectionStatus = model.StatusDisconnected
	next.LinkSpeedMbps = 0
	if next.IsOnline {
		next.ConnectionStatus = model.StatusConnected
		if speed, err := readInt(filepath.Join(netDir, "speed")); err == nil && speed > 0 {
			next.LinkSpeedMbps = uint64(speed)
		}
	}

	driver, version, err := s.driverInfo(ctx, iface)
	if err != nil {
		return next, &collector.PartialError{Sensor: s.Name(), Err: err}
	}
	next.Driver = driver
	if version != "" {
		next.Version = version
	}
	return next, nil
}

// driverInfo prefers sysfs and asks ethtool only when sysfs has no answer.
func (s *LinkSensor) driverInfo(ctx context.Context, iface string) (driver, version string, err error) {
	driver, sysErr := linkTarget(filepath.Join(s.sysfsRoot, "class", "net", iface, "device", "driver"))
	if sysErr == nil {
		version, _ = readTrimmed(filepath.Join(s.sysfsRoot, "module", driver, "version"))
		if version != "" {
			return driver, version, nil
		}
	}

	info, ethErr := s.ethtool(ctx, iface)
	if ethErr != nil {
		if sysErr == nil {
			return driver, "", nil
		}
		return "", "", errors.Join(sysErr, ethErr)
	}
	if driver == "" {
		driver = info["driver"]
	}
	if driver == "" {
		return "", "", fmt.Errorf("no driver reported for %s", iface)
	}
	return driver, info["version"], nil
}
