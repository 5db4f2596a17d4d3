package parser

import "encoding/xml"

// Lenient QTI 1.2 shapes. Tags carry no namespace so both namespaced and
// bare third-party documents match.

type xmlItem struct {
	XMLName       xml.Name           `xml:"item"`
	Ident         string             `xml:"ident,attr"`
	Title         string             `xml:"title,attr"`
	Metadata      []xmlField         `xml:"itemmetadata>qtimetadata>qtimetadatafield"`
	Presentation  xmlPresentation    `xml:"presentation"`
	Resprocessing []xmlResprocessing `xml:"resprocessing"`
}

type xmlField struct {
	Label string `xml:"fieldlabel"`
	Entry string `xml:"fieldentry"`
}

type xmlPresentation struct {
	Materials    []xmlMaterial     `xml:"material"`
	ResponseLids []xmlResponse     `xml:"response_lid"`
	ResponseStrs []xmlResponse     `xml:"response_str"`
	Flows        []xmlPresentation `xml:"flow"`
}

type xmlMaterial struct {
	Texts []xmlMattext `xml:"mattext"`
}

type xmlMattext struct {
	TextType string `xml:"texttype,attr"`
	Value    string `xml:",chardata"`
}

type xmlResponse struct {
	Ident       string        `xml:"ident,attr"`
	Cardinality string        `xml:"rcardinality,attr"`
	Materials   []xmlMaterial `xml:"material"`
	Labels      []xmlLabel    `xml:"render_choice>response_label"`
	FlowLabels  []xmlLabel    `xml:"render_choice>flow_label>response_label"`
	FibLabels   []xmlLabel    `xml:"render_fib>response_label"`
}

type xmlLabel struct {
	Ident     string        `xml:"ident,attr"`
	Materials []xmlMaterial `xml:"material"`
}

type xmlResprocessing struct {
	Conditions []xmlCondition `xml:"respcondition"`
}

type xmlCondition struct {
	Continue string      `xml:"continue,attr"`
	Var      xmlNode     `xml:"conditionvar"`
	Setvars  []xmlSetvar `xml:"setvar"`
}

// xmlNode is a generic element used for condition trees.
type xmlNode struct {
	XMLName  xml.Name
	Value    string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

type xmlSetvar struct {
	Action  string `xml:"action,attr"`
	VarName string `xml:"varname,attr"`
	Value   string `xml:",chardata"`
}

// collect flattens nested <flow> elements.
func (p xmlPresentation) collect() xmlPresentation {
	out := xmlPresentation{
		Materials:    append([]xmlMaterial(nil), p.Materials...),
		ResponseLids: append([]xmlResponse(nil), p.ResponseLids...),
		ResponseStrs: append([]xmlResponse(nil), p.ResponseStrs...),
	}
	for _, f := range p.Flows {
		c := f.collect()
		out.Materials = append(out.Materials, c.Materials...)
		out.ResponseLids = append(out.ResponseLids, c.ResponseLids...)
		out.ResponseStrs = append(out.ResponseStrs, c.ResponseStrs...)
	}
	return out
}

func (r xmlResponse) labels() []xmlLabel {
	out := append([]xmlLabel(nil), r.Labels...)
	return append(out, r.FlowLabels...)
}
