package export

import "encoding/xml"

// --- mini XML model for QTI 1.2 (export only) ---

const (
	nsQTI        = "http://www.imsglobal.org/xsd/ims_qtiasiv1p2"
	nsQTISchema  = "http://www.imsglobal.org/xsd/ims_qtiasiv1p2 http://www.imsglobal.org/xsd/ims_qtiasiv1p2p1.xsd"
	nsXSI        = "http://www.w3.org/2001/XMLSchema-instance"
	nsCP         = "http://www.imsglobal.org/xsd/imsccv1p1/imscp_v1p1"
	nsLOM        = "http://ltsc.ieee.org/xsd/imsccv1p1/LOM/resource"
	nsIMSMD      = "http://www.imsglobal.org/xsd/imsmd_v1p2"
	nsCPSchema   = "http://www.imsglobal.org/xsd/imsccv1p1/imscp_v1p1 http://www.imsglobal.org/xsd/imscp_v1p1.xsd http://ltsc.ieee.org/xsd/imsccv1p1/LOM/resource http://www.imsglobal.org/profile/cc/ccv1p1/LOM/ccv1p1_lomresource_v1p0.xsd http://www.imsglobal.org/xsd/imsmd_v1p2 http://www.imsglobal.org/xsd/imsmd_v1p2p2.xsd"
	nsCanvas     = "http://canvas.instructure.com/xsd/cccv1p0"
	nsCanvasXSD  = "http://canvas.instructure.com/xsd/cccv1p0 https://canvas.instructure.com/xsd/cccv1p0.xsd"
	scoreVar     = "SCORE"
	fullScore    = "100"
	textPlain    = "text/plain"
	resQTI       = "imsqti_xmlv1p2"
	resLearnApp  = "associatedcontent/imscc_xmlv1p1/learning-application-resource"
	cardSingle   = "Single"
	cardMultiple = "Multiple"
)

type questestinterop struct {
	XMLName    xml.Name   `xml:"questestinterop"`
	Xmlns      string     `xml:"xmlns,attr"`
	XmlnsXSI   string     `xml:"xmlns:xsi,attr"`
	SchemaLoc  string     `xml:"xsi:schemaLocation,attr"`
	Assessment assessment `xml:"assessment"`
}

type assessment struct {
	Ident    string      `xml:"ident,attr"`
	Title    string      `xml:"title,attr"`
	Metadata qtiMetadata `xml:"qtimetadata"`
	Section  section     `xml:"section"`
}

type qtiMetadata struct {
	Fields []metaField `xml:"qtimetadatafield"`
}

type metaField struct {
	Label string `xml:"fieldlabel"`
	Entry string `xml:"fieldentry"`
}

type section struct {
	Ident string `xml:"ident,attr"`
	Items []item `xml:"item"`
}

type item struct {
	Ident         string        `xml:"ident,attr"`
	Title         string        `xml:"title,attr"`
	Metadata      qtiMetadata   `xml:"itemmetadata>qtimetadata"`
	Presentation  presentation  `xml:"presentation"`
	Resprocessing resprocessing `xml:"resprocessing"`
}

type presentation struct {
	Material    material     `xml:"material"`
	ResponseLid *responseLid `xml:"response_lid,omitempty"`
	ResponseStr *responseStr `xml:"response_str,omitempty"`
}

type material struct {
	Text mattext `xml:"mattext"`
}

type mattext struct {
	TextType string `xml:"texttype,attr"`
	Value    string `xml:",chardata"`
}

type responseLid struct {
	Ident       string       `xml:"ident,attr"`
	Cardinality string       `xml:"rcardinality,attr"`
	Material    *material    `xml:"material,omitempty"`
	Choice      renderChoice `xml:"render_choice"`
}

type renderChoice struct {
	Labels []responseLabel `xml:"response_label"`
}

type responseStr struct {
	Ident       string    `xml:"ident,attr"`
	Cardinality string    `xml:"rcardinality,attr"`
	Fib         renderFib `xml:"render_fib"`
}

type renderFib struct {
	Labels []responseLabel `xml:"response_label"`
}

type responseLabel struct {
	Ident    string    `xml:"ident,attr"`
	RShuffle string    `xml:"rshuffle,attr,omitempty"`
	Material *material `xml:"material,omitempty"`
}

type resprocessing struct {
	Outcomes   outcomes        `xml:"outcomes"`
	Conditions []respcondition `xml:"respcondition"`
}

type outcomes struct {
	Decvar decvar `xml:"decvar"`
}

type decvar struct {
	MaxValue string `xml:"maxvalue,attr"`
	MinValue string `xml:"minvalue,attr"`
	VarName  string `xml:"varname,attr"`
	VarType  string `xml:"vartype,attr"`
}

type respcondition struct {
	Continue string       `xml:"continue,attr"`
	Var      conditionVar `xml:"conditionvar"`
	Setvar   setvar       `xml:"setvar"`
}

type conditionVar struct {
	Nodes []condNode `xml:",any"`
}

// condNode is one element of a scoring condition: varequal, not or and.
// The element name comes from XMLName.
type condNode struct {
	XMLName   xml.Name
	RespIdent string     `xml:"respident,attr,omitempty"`
	Case      string     `xml:"case,attr,omitempty"`
	Value     string     `xml:",chardata"`
	Children  []condNode `xml:",any"`
}

type setvar struct {
	Action  string `xml:"action,attr"`
	VarName string `xml:"varname,attr"`
	Value   string `xml:",chardata"`
}

func varequal(respIdent, value string) condNode {
	return condNode{XMLName: xml.Name{Local: "varequal"}, RespIdent: respIdent, Value: value}
}

func not(n condNode) condNode {
	return condNode{XMLName: xml.Name{Local: "not"}, Children: []condNode{n}}
}

func and(ns ...condNode) condNode {
	return condNode{XMLName: xml.Name{Local: "and"}, Children: ns}
}

func text(s string) *material {
	return &material{Text: mattext{TextType: textPlain, Value: s}}
}

func fullCredit(n condNode) respcondition {
	return respcondition{
		Continue: "No",
		Var:      conditionVar{Nodes: []condNode{n}},
		Setvar:   setvar{Action: "Set", VarName: scoreVar, Value: fullScore},
	}
}

// --- manifest ---

type manifest struct {
	XMLName       xml.Name     `xml:"manifest"`
	Identifier    string       `xml:"identifier,attr"`
	Xmlns         string       `xml:"xmlns,attr"`
	XmlnsLOM      string       `xml:"xmlns:lom,attr"`
	XmlnsIMSMD    string       `xml:"xmlns:imsmd,attr"`
	XmlnsXSI      string       `xml:"xmlns:xsi,attr"`
	SchemaLoc     string       `xml:"xsi:schemaLocation,attr"`
	Metadata      manifestMeta `xml:"metadata"`
	Organizations struct{}     `xml:"organizations"`
	Resources     []resource   `xml:"resources>resource"`
}

type manifestMeta struct {
	Schema        string `xml:"schema"`
	SchemaVersion string `xml:"schemaversion"`
}

type resource struct {
	Identifier   string       `xml:"identifier,attr"`
	Type         string       `xml:"type,attr"`
	Href         string       `xml:"href,attr,omitempty"`
	Files        []file       `xml:"file"`
	Dependencies []dependency `xml:"dependency"`
}

type file struct {
	Href string `xml:"href,attr"`
}

type dependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

// --- assessment_meta.xml ---

type quizMeta struct {
	XMLName         xml.Name `xml:"quiz"`
	Identifier      string   `xml:"identifier,attr"`
	Xmlns           string   `xml:"xmlns,attr"`
	XmlnsXSI        string   `xml:"xmlns:xsi,attr"`
	SchemaLoc       string   `xml:"xsi:schemaLocation,attr"`
	Title           string   `xml:"title"`
	Description     string   `xml:"description"`
	ShuffleAnswers  bool     `xml:"shuffle_answers"`
	ScoringPolicy   string   `xml:"scoring_policy"`
	HideResults     string   `xml:"hide_results"`
	QuizType        string   `xml:"quiz_type"`
	PointsPossible  string   `xml:"points_possible"`
	AllowedAttempts int      `xml:"allowed_attempts"`
	Available       bool     `xml:"available"`
	QuestionCount   int      `xml:"question_count"`
}
