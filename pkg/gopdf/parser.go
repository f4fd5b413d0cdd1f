package gopdf

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseContentStream 解析 PDF 内容流
// 不认识的操作符被解析为 OpIgnore，操作数不足的操作符被丢弃并记录调试日志。
func ParseContentStream(stream []byte) ([]PDFOperator, error) {
	tokens := tokenize(stream)
	return parseTokens(tokens)
}

// tokenize 将内容流分词
// 字符串 (...) 支持嵌套括号与转义，% 注释到行尾，BI ... EI 内联图像整体跳过。
func tokenize(content []byte) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch ch {
		case '(':
			flush()
			end := scanLiteralString(content, i)
			tokens = append(tokens, string(content[i:end]))
			i = end - 1

		case '%':
			flush()
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}

		case '<':
			flush()
			if i+1 < len(content) && content[i+1] == '<' {
				tokens = append(tokens, "<<")
				i++
				continue
			}
			end := i + 1
			for end < len(content) && content[end] != '>' {
				end++
			}
			if end < len(content) {
				end++
			}
			tokens = append(tokens, string(content[i:end]))
			i = end - 1

		case '>':
			flush()
			if i+1 < len(content) && content[i+1] == '>' {
				tokens = append(tokens, ">>")
				i++
			}

		case '[', ']', '{', '}':
			flush()
			tokens = append(tokens, string(ch))

		case '/':
			flush()
			current.WriteByte(ch)

		case ' ', '\t', '\r', '\n', '\f', 0:
			flush()

		default:
			current.WriteByte(ch)
		}

		// 内联图像的数据可能包含任意字节，直接跳到 EI
		if current.Len() == 0 && len(tokens) > 0 && tokens[len(tokens)-1] == "ID" {
			i = skipInlineImage(content, i+1)
			tokens[len(tokens)-1] = "EI"
		}
	}
	flush()

	return tokens
}

// scanLiteralString 返回从 start 处 '(' 开始的字符串结束位置（不含）
func scanLiteralString(content []byte, start int) int {
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(content)
}

// skipInlineImage 跳过内联图像数据，返回 EI 之后的最后一个字节位置
func skipInlineImage(content []byte, from int) int {
	for i := from; i+1 < len(content); i++ {
		if content[i] != 'E' || content[i+1] != 'I' {
			continue
		}
		before := i == 0 || isWhitespace(content[i-1])
		after := i+2 >= len(content) || isWhitespace(content[i+2])
		if before && after {
			return i + 1
		}
	}
	return len(content)
}

func isWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// ParseTokens 解析 token 为操作符（导出供测试使用）
func ParseTokens(tokens []string) ([]PDFOperator, error) {
	return parseTokens(tokens)
}

// parseTokens 解析 token 为操作符
func parseTokens(tokens []string) ([]PDFOperator, error) {
	var operators []PDFOperator
	var stack []interface{}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		switch token {
		case "":
			continue
		case "[":
			array := []interface{}{}
			i++
			for i < len(tokens) && tokens[i] != "]" {
				array = append(array, parseValue(tokens[i]))
				i++
			}
			stack = append(stack, array)
			continue
		case "<<":
			// 字典操作数（BDC 属性、内联图像参数）只需要整体跳过
			depth := 1
			for i++; i < len(tokens) && depth > 0; i++ {
				switch tokens[i] {
				case "<<":
					depth++
				case ">>":
					depth--
				}
			}
			i--
			stack = append(stack, map[string]interface{}{})
			continue
		case "{", "}":
			continue
		}

		if !isOperatorToken(token) {
			stack = append(stack, parseValue(token))
			continue
		}

		op, err := createOperator(token, stack)
		if err != nil {
			Debug("skip operator %s: %v", token, err)
		} else {
			operators = append(operators, op)
		}
		stack = stack[:0]
	}

	return operators, nil
}

// isOperatorToken 判断 token 是否为操作符（非数字、名称、字符串、布尔值）
func isOperatorToken(token string) bool {
	switch token[0] {
	case '/', '(', '<':
		return false
	}
	switch token {
	case "true", "false", "null":
		return false
	}
	if _, err := strconv.ParseFloat(token, 64); err == nil {
		return false
	}
	return true
}

// parseValue 解析值
func parseValue(token string) interface{} {
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f
	}
	switch token {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return token
}

// paintOps 路径绘制操作符表
var paintOps = map[string]OpPaintPath{
	"S":  {Stroke: true},
	"s":  {Close: true, Stroke: true},
	"f":  {Fill: true},
	"F":  {Fill: true},
	"f*": {Fill: true, EvenOdd: true},
	"B":  {Fill: true, Stroke: true},
	"B*": {Fill: true, Stroke: true, EvenOdd: true},
	"b":  {Close: true, Fill: true, Stroke: true},
	"b*": {Close: true, Fill: true, Stroke: true, EvenOdd: true},
	"n":  {},
}

// createOperator 根据操作符名称和参数创建操作符对象
func createOperator(name string, args []interface{}) (PDFOperator, error) {
	if paint, ok := paintOps[name]; ok {
		paint.Op = name
		return &paint, nil
	}

	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("need %d operands, got %d", n, len(args))
		}
		return nil
	}
	// 操作数取栈顶的最后 n 个
	nums := func(n int) ([]float64, error) {
		if err := need(n); err != nil {
			return nil, err
		}
		out := make([]float64, n)
		for i, a := range args[len(args)-n:] {
			f, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("operand %d is not a number: %v", i, a)
			}
			out[i] = f
		}
		return out, nil
	}

	switch name {
	case "q":
		return &OpSaveState{}, nil
	case "Q":
		return &OpRestoreState{}, nil
	case "cm":
		v, err := nums(6)
		if err != nil {
			return nil, err
		}
		return &OpConcatMatrix{Matrix: NewMatrixFromPDF(v[0], v[1], v[2], v[3], v[4], v[5])}, nil
	case "w":
		v, err := nums(1)
		if err != nil {
			return nil, err
		}
		return &OpSetLineWidth{Width: v[0]}, nil
	case "J":
		v, err := nums(1)
		if err != nil {
			return nil, err
		}
		return &OpSetLineCap{Cap: int(v[0])}, nil
	case "j":
		v, err := nums(1)
		if err != nil {
			return nil, err
		}
		return &OpSetLineJoin{Join: int(v[0])}, nil
	case "M":
		v, err := nums(1)
		if err != nil {
			return nil, err
		}
		return &OpSetMiterLimit{Limit: v[0]}, nil
	case "d":
		if err := need(2); err != nil {
			return nil, err
		}
		arr, ok := args[len(args)-2].([]interface{})
		if !ok {
			return nil, fmt.Errorf("dash pattern is not an array")
		}
		return &OpSetDash{Pattern: toFloatArray(arr), Offset: toFloat(args[len(args)-1])}, nil
	case "m":
		v, err := nums(2)
		if err != nil {
			return nil, err
		}
		return &OpMoveTo{X: v[0], Y: v[1]}, nil
	case "l":
		v, err := nums(2)
		if err != nil {
			return nil, err
		}
		return &OpLineTo{X: v[0], Y: v[1]}, nil
	case "c":
		v, err := nums(6)
		if err != nil {
			return nil, err
		}
		return &OpCurveTo{Op: name, X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], X3: v[4], Y3: v[5]}, nil
	case "v":
		v, err := nums(4)
		if err != nil {
			return nil, err
		}
		return &OpCurveTo{Op: name, X2: v[0], Y2: v[1], X3: v[2], Y3: v[3]}, nil
	case "y":
		v, err := nums(4)
		if err != nil {
			return nil, err
		}
		return &OpCurveTo{Op: name, X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], X3: v[2], Y3: v[3]}, nil
	case "re":
		v, err := nums(4)
		if err != nil {
			return nil, err
		}
		return &OpRectangle{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
	case "h":
		return &OpClosePath{}, nil
	case "W":
		return &OpClip{}, nil
	case "W*":
		return &OpClip{EvenOdd: true}, nil
	case "G", "g":
		v, err := nums(1)
		if err != nil {
			return nil, err
		}
		return &OpSetColor{Op: name, Stroke: name == "G", Components: v}, nil
	case "RG", "rg":
		v, err := nums(3)
		if err != nil {
			return nil, err
		}
		return &OpSetColor{Op: name, Stroke: name == "RG", Components: v}, nil
	case "K", "k":
		v, err := nums(4)
		if err != nil {
			return nil, err
		}
		return &OpSetColor{Op: name, Stroke: name == "K", Components: v}, nil
	case "SC", "sc", "SCN", "scn":
		// 只接受数值分量，图案名称操作数（/P1）被跳过
		var comps []float64
		for _, a := range args {
			if f, ok := a.(float64); ok {
				comps = append(comps, f)
			}
		}
		return &OpSetColor{Op: name, Stroke: name == "SC" || name == "SCN", Components: comps}, nil
	}

	return &OpIgnore{Op: name}, nil
}

// toFloat 转换为 float64
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return 0
	}
}

// toFloatArray 转换为 float64 数组
func toFloatArray(arr []interface{}) []float64 {
	result := make([]float64, 0, len(arr))
	for _, v := range arr {
		result = append(result, toFloat(v))
	}
	return result
}
