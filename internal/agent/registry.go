package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxToolParamsSize is the maximum size of tool argument JSON (1MB).
const MaxToolParamsSize = 1 << 20

// ToolRegistry manages the tool catalog with thread-safe registration and
// lookup. Each tool's JSON Schema is compiled at registration time so that
// arguments can be validated before dispatch.
type ToolRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewToolRegistry creates a new empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry by its name, compiling its parameter
// schema. If a tool with the same name already exists, it is replaced.
func (r *ToolRegistry) Register(tool Tool) error {
	name := tool.Name()

	compiler := jsonschema.NewCompiler()
	url := name + ".schema.json"
	if err := compiler.AddResource(url, bytes.NewReader(tool.Schema())); err != nil {
		return fmt.Errorf("invalid schema for tool %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("failed to compile schema for tool %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
	r.schemas[name] = schema
	return nil
}

// Get returns a tool by name and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AsLLMTools returns all registered tools as a slice for passing to LLM
// providers, in sorted name order so requests are deterministic.
func (r *ToolRegistry) AsLLMTools() []Tool {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			tools = append(tools, tool)
		}
	}
	return tools
}

// ValidateArgs checks raw tool arguments against the tool's compiled schema.
// Returns ErrUnknownTool for unregistered names and ErrMalformedArgs when
// the payload is not valid JSON or violates the schema.
func (r *ToolRegistry) ValidateArgs(name string, params json.RawMessage) error {
	if len(params) > MaxToolParamsSize {
		return fmt.Errorf("%w: arguments exceed %d bytes", ErrMalformedArgs, MaxToolParamsSize)
	}

	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	var value any
	if err := json.Unmarshal(params, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedArgs, err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedArgs, err)
	}
	return nil
}
