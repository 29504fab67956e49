package xnode

import (
	"bytes"
	encjson "encoding/json"
	"errors"
	"fmt"
	"io"

	goyaml "gopkg.in/yaml.v3"
)

// buildOrderIndex 对原始字节做一次顺序扫描，建立 路径 → 有序子键 索引。
//
// koanf 的 map 存储丢失键序，而 Children 必须按声明顺序枚举（配置的
// 声明顺序决定下游 sink 集合的顺序）。YAML 通过 yaml.Node 保留顺序，
// JSON 通过 token 流保留顺序。
func buildOrderIndex(data []byte, format Format, delim string) (map[string][]string, error) {
	order := make(map[string][]string)

	switch format {
	case FormatYAML:
		var root goyaml.Node
		if err := goyaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
		doc := &root
		if root.Kind == goyaml.DocumentNode && len(root.Content) > 0 {
			doc = root.Content[0]
		}
		walkYAML(doc, "", delim, order)

	case FormatJSON:
		dec := encjson.NewDecoder(bytes.NewReader(data))
		if err := walkJSON(dec, "", true, delim, order); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	return order, nil
}

// joinPath 拼接父路径与子键。
func joinPath(path, key, delim string) string {
	if path == "" {
		return key
	}
	return path + delim + key
}

// walkYAML 递归记录映射节点的键声明顺序。
// 序列内部的映射不可通过点分路径寻址，跳过不记录。
func walkYAML(n *goyaml.Node, path, delim string, order map[string][]string) {
	if n == nil || n.Kind != goyaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		order[path] = append(order[path], key)
		walkYAML(n.Content[i+1], joinPath(path, key, delim), delim, order)
	}
}

// walkJSON 消费一个 JSON 值的全部 token，记录对象键的声明顺序。
// record 为 false 时只消费不记录（数组内部的对象不可寻址）。
func walkJSON(dec *encjson.Decoder, path string, record bool, delim string, order map[string][]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	d, ok := tok.(encjson.Delim)
	if !ok {
		return nil // 标量值
	}

	switch d {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			child := joinPath(path, key, delim)
			if record {
				order[path] = append(order[path], key)
			}
			if err := walkJSON(dec, child, record, delim, order); err != nil {
				return err
			}
		}
		_, err = dec.Token() // 消费 '}'
		return err

	case '[':
		for dec.More() {
			if err := walkJSON(dec, path, false, delim, order); err != nil {
				return err
			}
		}
		_, err = dec.Token() // 消费 ']'
		return err
	}

	return nil
}
