package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultSysfsRoot = "/sys"

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readInt(path string) (int64, error) {
	s, err := readTrimmed(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

// linkTarget returns the base name of the symlink at path.
func linkTarget(path string) (string, error) {
	target, err := os.Readlink(path)
	if err != nil {
		return "", err
	}
	return filepath.Base(target), nil
}

// ethtoolInfo runs `ethtool -i iface` and returns its key/value lines.
func ethtoolInfo(ctx context.Context, iface string) (map[string]string, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, "ethtool", "-i", iface)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ethtool -i %s: %w", iface, err)
	}
	return parseKeyValues(stdout.String()), nil
}

func parseKeyValues(out string) map[string]string {
	kv := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		kv[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return kv
}
