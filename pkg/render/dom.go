package render

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// installGlobals binds window, self, console and a document shim that is
// backed by doc.
func installGlobals(vm *goja.Runtime, doc *goquery.Document) error {
	global := vm.GlobalObject()
	for _, name := range []string{"window", "self"} {
		if err := vm.Set(name, global); err != nil {
			return err
		}
	}

	console := vm.NewObject()
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(name, noop); err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	document := vm.NewObject()
	err := document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		sel := findByID(doc, call.Argument(0).String())
		if sel.Length() == 0 {
			return goja.Null()
		}
		return elementObject(vm, sel)
	})
	if err != nil {
		return err
	}
	err = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		sel := doc.Find(call.Argument(0).String()).First()
		if sel.Length() == 0 {
			return goja.Null()
		}
		return elementObject(vm, sel)
	})
	if err != nil {
		return err
	}
	return vm.Set("document", document)
}

// elementObject exposes a live view of sel with textContent and innerHTML
func elementObject(vm *goja.Runtime, sel *goquery.Selection) goja.Value {
	el := vm.NewObject()
	_ = el.Set("id", sel.AttrOr("id", ""))
	_ = el.Set("tagName", goquery.NodeName(sel))
	_ = el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := sel.Attr(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})

	text := func(goja.FunctionCall) goja.Value { return vm.ToValue(sel.Text()) }
	setText := func(call goja.FunctionCall) goja.Value {
		setRawText(sel, call.Argument(0).String())
		return goja.Undefined()
	}
	innerHTML := func(goja.FunctionCall) goja.Value {
		h, _ := sel.Html()
		return vm.ToValue(h)
	}
	setHTML := func(call goja.FunctionCall) goja.Value {
		sel.SetHtml(call.Argument(0).String())
		return goja.Undefined()
	}

	_ = el.DefineAccessorProperty("textContent", vm.ToValue(text), vm.ToValue(setText), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = el.DefineAccessorProperty("innerText", vm.ToValue(text), vm.ToValue(setText), goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = el.DefineAccessorProperty("innerHTML", vm.ToValue(innerHTML), vm.ToValue(setHTML), goja.FLAG_FALSE, goja.FLAG_TRUE)
	return el
}

// findByID matches the id attribute literally, so ids need no CSS escaping
func findByID(doc *goquery.Document, id string) *goquery.Selection {
	return doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	}).First()
}

// setRawText replaces the children of sel with one text node holding s as
// is. Selection.SetText escapes its input, which a script element would keep
// literally.
func setRawText(sel *goquery.Selection, s string) {
	sel.Empty().AppendNodes(&html.Node{Type: html.TextNode, Data: s})
}

// newDataScript builds <script id=id type="application/json">data</script>
func newDataScript(id, data string) *html.Node {
	script := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "type", Val: "application/json"},
		},
	}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: data})
	return script
}
