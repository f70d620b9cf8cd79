// Package stream frames agent progress as OpenAI chat-completion chunks for
// SSE delivery. One generator lives per agent session: producers append
// frames while an HTTP handler drains them, and a finish marker ends the
// current drain without discarding frames produced after a later resume.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	chunkObject = "chat.completion.chunk"

	// idLength matches the OpenAI completion id width.
	idLength = 29
)

// ToolCallTypeFunction is the only tool-call type the chunk protocol
// carries.
const ToolCallTypeFunction = "function"

// Generator accumulates SSE frames for one agent session. Frames are
// consumed destructively: a drain that hits the finish marker ends with
// io.EOF, and a later drain picks up whatever was queued after it.
type Generator struct {
	id          string
	model       string
	created     int64
	fingerprint string

	mu     sync.Mutex
	frames [][]byte
	notify chan struct{}
}

// NewGenerator returns a generator whose chunks carry the given model
// identifier. Sessions pass the agent id here so clients can recover it
// from any chunk.
func NewGenerator(model string) *Generator {
	id := "chatcmpl-" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(id) > idLength {
		id = id[:idLength]
	}
	return &Generator{
		id:          id,
		model:       model,
		created:     time.Now().Unix(),
		fingerprint: fingerprintFor(model),
		notify:      make(chan struct{}, 1),
	}
}

func fingerprintFor(model string) string {
	h := fnv.New32a()
	h.Write([]byte(model))
	return fmt.Sprintf("fp_%08x", h.Sum32())
}

// Model returns the model identifier stamped on every chunk.
func (g *Generator) Model() string { return g.model }

type chunk struct {
	ID                string      `json:"id"`
	Object            string      `json:"object"`
	Created           int64       `json:"created"`
	Model             string      `json:"model"`
	SystemFingerprint string      `json:"system_fingerprint"`
	Choices           []choice    `json:"choices"`
	Usage             *chunkUsage `json:"usage"`
}

type choice struct {
	Delta        any     `json:"delta"`
	Index        int     `json:"index"`
	FinishReason *string `json:"finish_reason"`
	Logprobs     any     `json:"logprobs"`
}

type chunkUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type contentDelta struct {
	Content   string `json:"content"`
	Role      string `json:"role"`
	ToolCalls any    `json:"tool_calls"`
}

type toolCallDelta struct {
	ToolCalls []toolCallEntry `json:"tool_calls"`
}

type toolCallEntry struct {
	Index    int              `json:"index"`
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function toolCallFunction `json:"function"`
}

type toolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// AddContent queues an assistant text delta.
func (g *Generator) AddContent(content string) {
	g.push(g.frame(contentDelta{Content: content, Role: "assistant"}, nil, nil))
}

// AddToolCall queues a tool-call delta announcing an action and its
// argument JSON.
func (g *Generator) AddToolCall(toolCallID, functionName, arguments string) {
	delta := toolCallDelta{ToolCalls: []toolCallEntry{{
		ID:       toolCallID,
		Type:     ToolCallTypeFunction,
		Function: toolCallFunction{Name: functionName, Arguments: arguments},
	}}}
	g.push(g.frame(delta, nil, nil))
}

// Finish queues the final chunk with the given finish reason and zeroed
// usage, the [DONE] frame, and the end-of-drain marker. The generator stays
// usable: frames queued afterwards feed the next drain.
func (g *Generator) Finish(finishReason string) {
	usage := &chunkUsage{}
	g.push(g.frame(struct{}{}, &finishReason, usage))
	g.push([]byte("data: [DONE]\n\n"))
	g.push(nil)
}

func (g *Generator) frame(delta any, finishReason *string, usage *chunkUsage) []byte {
	payload, err := json.Marshal(chunk{
		ID:                g.id,
		Object:            chunkObject,
		Created:           g.created,
		Model:             g.model,
		SystemFingerprint: g.fingerprint,
		Choices:           []choice{{Delta: delta, FinishReason: finishReason}},
		Usage:             usage,
	})
	if err != nil {
		// The chunk types marshal unconditionally.
		panic(fmt.Sprintf("marshal stream chunk: %v", err))
	}
	return []byte("data: " + string(payload) + "\n\n")
}

func (g *Generator) push(frame []byte) {
	g.mu.Lock()
	g.frames = append(g.frames, frame)
	g.mu.Unlock()
	select {
	case g.notify <- struct{}{}:
	default:
	}
}

// Next blocks until a frame is available and pops it. It returns io.EOF
// when the drain reaches a finish marker and ctx.Err() when the consumer is
// gone. Frames handed out are gone from the queue.
func (g *Generator) Next(ctx context.Context) ([]byte, error) {
	for {
		g.mu.Lock()
		if len(g.frames) > 0 {
			frame := g.frames[0]
			g.frames = g.frames[1:]
			g.mu.Unlock()
			if frame == nil {
				return nil, io.EOF
			}
			return frame, nil
		}
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.notify:
		}
	}
}
