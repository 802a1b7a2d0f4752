package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIssueKey splits an issue key such as "OPS-123" into its project key and number.
func ParseIssueKey(key string) (project string, number int, err error) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("invalid issue key %q", key)
	}

	number, err = strconv.Atoi(key[idx+1:])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("invalid issue key %q", key)
	}

	return strings.ToUpper(key[:idx]), number, nil
}

func IsValidIssueKey(key string) bool {
	_, _, err := ParseIssueKey(key)
	return err == nil
}
