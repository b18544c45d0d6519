package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTopic is returned when a topic name cannot be normalized.
var ErrInvalidTopic = errors.New("invalid topic name")

// ModelCmdVelTopic returns the velocity command topic for a model.
func ModelCmdVelTopic(namespace, model string) string {
	return fmt.Sprintf("%s/model/%s/cmd_vel", namespace, model)
}

// LinkCmdVelTopic returns the velocity command topic for a named link of
// a model.
func LinkCmdVelTopic(namespace, model, link string) string {
	return fmt.Sprintf("%s/model/%s/link/%s/cmd_vel", namespace, model, link)
}

// JointCmdPosTopic returns the position command topic for the first axis
// of a named joint of a model.
func JointCmdPosTopic(namespace, model, joint string) string {
	return fmt.Sprintf("%s/model/%s/joint/%s/0/cmd_pos", namespace, model, joint)
}

// ValidTopic normalizes a topic name: whitespace becomes underscores,
// repeated slashes collapse, and a leading slash is guaranteed. An empty
// result is an error.
func ValidTopic(topic string) (string, error) {
	t := strings.TrimSpace(topic)
	t = strings.Join(strings.Fields(t), "_")
	for strings.Contains(t, "//") {
		t = strings.ReplaceAll(t, "//", "/")
	}
	t = strings.Trim(t, "/")
	if t == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return "/" + t, nil
}

// LinkForTopic reports which of the given link names a cmd_vel topic
// addresses. Matching is on the exact /link/<name>/cmd_vel path segments,
// never a substring test, so a link named "arm" does not alias "arm_2".
func LinkForTopic(topic string, linkNames []string) (string, bool) {
	for _, name := range linkNames {
		if strings.HasSuffix(topic, "/link/"+name+"/cmd_vel") {
			return name, true
		}
	}
	return "", false
}
