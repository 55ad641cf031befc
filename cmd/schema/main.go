// schema 输出 WebSocket 协议消息的 JSON Schema，供客户端生成代码或校验。
//
//	go run ./cmd/schema -out protocol.schema.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"icegrid/server"
)

// Protocol 上下行消息的合集，仅用于生成 Schema
type Protocol struct {
	Input  server.InputMessage  `json:"input"`
	Server server.ServerMessage `json:"server"`
}

func main() {
	out := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	r := &jsonschema.Reflector{DoNotReference: false, ExpandedStruct: true}
	schema := r.Reflect(&Protocol{})
	schema.Title = "icegrid protocol"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal schema:", err)
		os.Exit(1)
	}
	data = append(data, '\n')
	if *out == "" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write schema:", err)
		os.Exit(1)
	}
}
