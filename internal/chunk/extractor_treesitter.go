package chunk

import (
	"fmt"
	"sync"

	"github.com/hieutran512/ragkit/internal/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Tree-sitter node type strings. These are defined by each language's
// grammar, not by this package; they are stable within a parser
// version but are not Go constants in the upstream sense.
const (
	nodeJavaClass       = "class_declaration"
	nodeJavaInterface   = "interface_declaration"
	nodeJavaEnum        = "enum_declaration"
	nodeJavaMethod      = "method_declaration"
	nodeJavaConstructor = "constructor_declaration"

	nodeJSFunction     = "function_declaration"
	nodeJSClass        = "class_declaration"
	nodeJSMethod       = "method_definition"
	nodeJSArrowFn      = "arrow_function"
	nodeJSFunctionExpr = "function_expression"

	nodeTSInterface = "interface_declaration"
	nodeTSTypeAlias = "type_alias_declaration"

	nodeIdentifier   = "identifier"
	nodeName         = "name"
	nodePropertyID   = "property_identifier"
	nodeTypeID       = "type_identifier"
	nodeVariableDecl = "variable_declarator"
)

var nodeKinds = map[string]models.SymbolKind{
	nodeJavaClass:       models.SymbolClass,
	nodeJavaInterface:   models.SymbolInterface,
	nodeJavaEnum:        models.SymbolEnum,
	nodeJavaMethod:      models.SymbolMethod,
	nodeJavaConstructor: models.SymbolMethod,
	nodeJSFunction:      models.SymbolFunction,
	nodeJSMethod:        models.SymbolMethod,
	nodeJSArrowFn:       models.SymbolFunction,
	nodeJSFunctionExpr:  models.SymbolFunction,
	nodeTSTypeAlias:     models.SymbolType,
}

var languageNodeTypes = map[string][]string{
	"java": {
		nodeJavaClass, nodeJavaInterface, nodeJavaEnum,
		nodeJavaMethod, nodeJavaConstructor,
	},
	"javascript": {
		nodeJSFunction, nodeJSClass, nodeJSMethod,
		nodeJSArrowFn, nodeJSFunctionExpr,
	},
	"typescript": {
		nodeJSFunction, nodeJSClass, nodeTSInterface,
		nodeTSTypeAlias, nodeJSMethod, nodeJSArrowFn,
	},
}

// TreeSitterExtractor extracts Symbol records from source using
// tree-sitter grammars for java, javascript, and typescript. Parsers
// are not thread-safe; access is serialized by mux.
type TreeSitterExtractor struct {
	mux     sync.Mutex
	parsers map[string]*sitter.Parser
}

// NewTreeSitterExtractor builds an extractor with parsers initialized
// for every language it supports.
func NewTreeSitterExtractor() *TreeSitterExtractor {
	e := &TreeSitterExtractor{parsers: make(map[string]*sitter.Parser)}

	javaParser := sitter.NewParser()
	javaParser.SetLanguage(java.GetLanguage())
	e.parsers["java"] = javaParser

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())
	e.parsers["javascript"] = jsParser

	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())
	e.parsers["typescript"] = tsParser

	return e
}

// ExtractSymbols parses source with the parser for profile.Name and
// returns every matching declaration as a Symbol. Returns an error if
// no parser exists for the language, which the caller treats as a
// signal to fall back to plain text chunking.
func (e *TreeSitterExtractor) ExtractSymbols(source string, profile Profile) ([]models.Symbol, error) {
	e.mux.Lock()
	parser, ok := e.parsers[profile.Name]
	if !ok {
		e.mux.Unlock()
		return nil, fmt.Errorf("no tree-sitter parser for language %q", profile.Name)
	}
	tree := parser.Parse(nil, []byte(source))
	e.mux.Unlock()

	if tree == nil {
		return nil, fmt.Errorf("tree-sitter: failed to parse source")
	}

	wantedTypes := languageNodeTypes[profile.Name]
	wanted := make(map[string]bool, len(wantedTypes))
	for _, t := range wantedTypes {
		wanted[t] = true
	}

	var symbols []models.Symbol
	content := []byte(source)
	walkSitterTree(tree.RootNode(), wanted, func(node *sitter.Node, nodeType string) {
		sym := symbolFromNode(node, nodeType, content)
		if sym != nil {
			symbols = append(symbols, *sym)
		}
	})

	return symbols, nil
}

func walkSitterTree(node *sitter.Node, wanted map[string]bool, callback func(*sitter.Node, string)) {
	if node == nil {
		return
	}
	nodeType := node.Type()
	if wanted[nodeType] {
		callback(node, nodeType)
	}
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		walkSitterTree(node.Child(i), wanted, callback)
	}
}

func symbolFromNode(node *sitter.Node, nodeType string, content []byte) *models.Symbol {
	start, end := node.StartByte(), node.EndByte()
	if start >= end || int(end) > len(content) {
		return nil
	}

	kind, ok := nodeKinds[nodeType]
	if !ok {
		kind = models.SymbolOther
	}

	name, nameRange := extractName(node, content)

	return &models.Symbol{
		Name:         name,
		Kind:         kind,
		NameRange:    nameRange,
		ContentRange: rangeFromNode(node),
	}
}

func extractName(node *sitter.Node, content []byte) (string, models.Range) {
	count := int(node.ChildCount())
	for i := 0; i < count; i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case nodeIdentifier, nodeName, nodePropertyID, nodeTypeID:
			start, end := child.StartByte(), child.EndByte()
			if start < end && int(end) <= len(content) {
				return string(content[start:end]), rangeFromNode(child)
			}
		case nodeVariableDecl:
			if name, r := extractName(child, content); name != "" {
				return name, r
			}
		}
	}
	return "", models.Range{}
}

func rangeFromNode(node *sitter.Node) models.Range {
	sp, ep := node.StartPoint(), node.EndPoint()
	return models.Range{
		Start: models.Position{Line: int(sp.Row) + 1, Column: int(sp.Column), Offset: int(node.StartByte())},
		End:   models.Position{Line: int(ep.Row) + 1, Column: int(ep.Column), Offset: int(node.EndByte())},
	}
}
