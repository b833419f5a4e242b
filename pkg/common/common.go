package common

import (
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	NA       = "N/A"
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// UUID returns a document id
func UUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// UUIDint64 returns a time ordered int64 id
func UUIDint64() int64 {
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(1)
		if err != nil {
			panic(err)
		}
	})
	return node.Generate().Int64()
}

func IfEmptyStr(src string, defval string) string {
	if strings.TrimSpace(src) == "" {
		return defval
	}
	return src
}

// InSlice reports whether v is one of the values
func InSlice(v string, values []string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
