package meta

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FileName 是 curation 目录中元数据文件的固定文件名。
const FileName = "meta.yaml"

// Marshal 把记录序列化为 YAML：字段按 Keys() 顺序输出，Additional Applications 在最后。
//
// 约束：Marshal -> Unmarshal -> Marshal 的输出逐字节一致。
func (r *Record) Marshal() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.keys {
		doc.Content = append(doc.Content, strNode(string(k)), valueNode(r.values[k]))
	}

	apps := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range r.apps {
		var v *yaml.Node
		if e.App != nil {
			v = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
				strNode(string(ApplicationPath)), strNode(e.App.ApplicationPath),
				strNode(string(LaunchCommand)), strNode(e.App.LaunchCommand),
			}}
		} else {
			v = strNode(e.Text)
		}
		apps.Content = append(apps.Content, strNode(e.Heading), v)
	}
	doc.Content = append(doc.Content, strNode(string(AdditionalApplications)), apps)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("序列化元数据失败：%w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func strNode(s string) *yaml.Node {
	n := &yaml.Node{}
	n.SetString(s)
	return n
}

func valueNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
	case bool:
		s := "false"
		if x {
			s = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: s}
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, it := range x {
			seq.Content = append(seq.Content, strNode(it))
		}
		return seq
	case string:
		return strNode(x)
	default:
		return strNode(fmt.Sprint(x))
	}
}

// Unmarshal 解析 meta.yaml。
//
// 文件中的键顺序原样保留（未知键也保留）；非字符串标量（数字等）按原文存为字符串。
func Unmarshal(data []byte) (*Record, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("解析元数据失败：%w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("解析元数据失败：文件为空")
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("解析元数据失败：顶层必须是 mapping（第 %d 行）", doc.Line)
	}

	r := empty()
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i].Value, doc.Content[i+1]
		if Field(key) == AdditionalApplications {
			apps, err := decodeApps(val)
			if err != nil {
				return nil, err
			}
			r.apps = apps
			continue
		}
		v, err := decodeValue(val)
		if err != nil {
			return nil, fmt.Errorf("解析字段 %q 失败：%w", key, err)
		}
		if !r.hasKey(Field(key)) {
			r.keys = append(r.keys, Field(key))
		}
		r.values[Field(key)] = v
	}
	return r, nil
}

func decodeValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		default:
			if n.Value == "" {
				return nil, nil
			}
			return n.Value, nil
		}
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, it := range n.Content {
			if it.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("第 %d 行：列表元素必须是标量", it.Line)
			}
			out = append(out, it.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("第 %d 行：不支持的值类型", n.Line)
	}
}

func decodeApps(n *yaml.Node) ([]AppEntry, error) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("第 %d 行：Additional Applications 必须是 mapping", n.Line)
	}

	var out []AppEntry
	for i := 0; i+1 < len(n.Content); i += 2 {
		e := AppEntry{Heading: n.Content[i].Value}
		val := n.Content[i+1]
		switch val.Kind {
		case yaml.MappingNode:
			a := &App{}
			for j := 0; j+1 < len(val.Content); j += 2 {
				v := val.Content[j+1]
				if v.Kind != yaml.ScalarNode || v.ShortTag() == "!!null" {
					continue
				}
				switch Field(val.Content[j].Value) {
				case ApplicationPath:
					a.ApplicationPath = v.Value
				case LaunchCommand:
					a.LaunchCommand = v.Value
				}
			}
			e.App = a
		case yaml.ScalarNode:
			if val.ShortTag() != "!!null" {
				e.Text = val.Value
			}
		default:
			// 其它形态无法表达，按格式错误的纯文本项保留标题。
		}
		out = append(out, e)
	}
	return out, nil
}
