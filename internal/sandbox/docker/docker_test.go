package docker

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/moby/moby/api/types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/home/user/app/page.tsx", resolvePath("/home/user", "app/page.tsx"))
	assert.Equal(t, "/etc/hosts", resolvePath("/home/user", "/etc/hosts"))
	assert.Equal(t, "/home/user/b", resolvePath("/home/user", "a/../b"))
	assert.Equal(t, "rel", resolvePath("", "rel"))
}

func TestWriteCommands_EmptyContent_TruncatesOnly(t *testing.T) {
	cmds := writeCommands("/home/user/empty.txt", "")

	require.Len(t, cmds, 1)
	assert.Equal(t, "/home/user/empty.txt", cmds[0][len(cmds[0])-1])
}

func TestWriteCommands_LargeContent_ChunksDecodeToOriginal(t *testing.T) {
	content := strings.Repeat("abcdefg\n", writeChunk/4) + "tail"

	cmds := writeCommands("/w/big.txt", content)

	require.Greater(t, len(cmds), 2)
	var rebuilt strings.Builder
	for _, cmd := range cmds[1:] {
		assert.Equal(t, "/w/big.txt", cmd[4])
		decoded, err := base64.StdEncoding.DecodeString(cmd[5])
		require.NoError(t, err)
		rebuilt.Write(decoded)
	}
	assert.Equal(t, content, rebuilt.String())
}

func TestWriteCommands_ShellMetacharactersStayInArguments(t *testing.T) {
	cmds := writeCommands("/w/$(rm -rf).txt", "`whoami` $HOME")

	for _, cmd := range cmds {
		assert.NotContains(t, cmd[2], "whoami")
		assert.NotContains(t, cmd[2], "rm -rf")
	}
}

func TestDeadline_RoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	parsed, err := parseDeadline(formatDeadline(now) + "\n")

	require.NoError(t, err)
	assert.True(t, parsed.Equal(now))

	_, err = parseDeadline("garbage")
	assert.Error(t, err)
}

func TestFallbackDeadline(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	deadline := fallbackDeadline(started.Format(time.RFC3339Nano), 10*time.Minute)
	assert.True(t, deadline.Equal(started.Add(10*time.Minute)))

	assert.True(t, fallbackDeadline(started.Format(time.RFC3339Nano), 0).IsZero())
	assert.True(t, fallbackDeadline("", time.Minute).IsZero())
}

func TestPublishedPort(t *testing.T) {
	ports := network.PortMap{
		network.MustParsePort("3000/tcp"): []network.PortBinding{{HostPort: ""}, {HostPort: "49153"}},
	}

	hostPort, err := publishedPort(ports, 3000)
	require.NoError(t, err)
	assert.Equal(t, "49153", hostPort)

	_, err = publishedPort(ports, 8080)
	assert.Error(t, err)
}

func TestImageFor_FallsBackToTemplate(t *testing.T) {
	p := &Provider{cfg: Config{Images: map[string]string{"vibe": "ghcr.io/acme/vibe:latest"}}}

	assert.Equal(t, "ghcr.io/acme/vibe:latest", p.imageFor("vibe"))
	assert.Equal(t, "node:20", p.imageFor("node:20"))
}

func TestCallbackWriter_BuffersAndForwards(t *testing.T) {
	var chunks []string
	w := &callbackWriter{fn: func(s string) { chunks = append(chunks, s) }}

	_, _ = w.Write([]byte("a"))
	_, _ = w.Write([]byte("b"))

	assert.Equal(t, []string{"a", "b"}, chunks)
	assert.Equal(t, "ab", w.buf.String())
}
