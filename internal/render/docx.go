package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"manualgen/internal/assembler"
)

const (
	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNS  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	pkgRel = "http://schemas.openxmlformats.org/package/2006/relationships"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>` +
	`</Types>`

const docxPackageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + pkgRel + `">` +
	`<Relationship Id="rId1" Type="` + relNS + `/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + pkgRel + `">` +
	`<Relationship Id="rId1" Type="` + relNS + `/styles" Target="styles.xml"/>` +
	`<Relationship Id="rId2" Type="` + relNS + `/numbering" Target="numbering.xml"/>` +
	`</Relationships>`

const docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="` + wordNS + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman" w:cs="Times New Roman"/><w:sz w:val="20"/></w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:pPr><w:spacing w:after="160"/></w:pPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:pPr><w:jc w:val="center"/></w:pPr><w:rPr><w:b/><w:sz w:val="36"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="0"/></w:pPr><w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="1"/></w:pPr><w:rPr><w:b/><w:sz w:val="24"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/><w:basedOn w:val="Normal"/><w:pPr><w:keepNext/><w:outlineLvl w:val="2"/></w:pPr><w:rPr><w:b/><w:sz w:val="22"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="TOCHeading"><w:name w:val="TOC Heading"/><w:basedOn w:val="Normal"/><w:rPr><w:b/><w:u w:val="single"/><w:sz w:val="24"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="ListBullet"><w:name w:val="List Bullet"/><w:basedOn w:val="Normal"/><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr><w:spacing w:after="0"/></w:pPr></w:style>` +
	`</w:styles>`

const docxNumbering = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="` + wordNS + `">` +
	`<w:abstractNum w:abstractNumId="0"><w:multiLevelType w:val="singleLevel"/>` +
	`<w:lvl w:ilvl="0"><w:start w:val="1"/><w:numFmt w:val="bullet"/><w:lvlText w:val="•"/><w:lvlJc w:val="left"/><w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr></w:lvl>` +
	`</w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>` +
	`</w:numbering>`

// docxIndent is the per-level TOC indent in twips (a quarter inch).
const docxIndent = 360

// DOCX renders the document as a Word package with the same layout as RTF:
// centered title, subject and date, an indented table of contents linked to
// heading bookmarks, a page break, then the sections. Unresolved blocks are
// highlighted when enabled.
func DOCX(doc *assembler.Document, opts Options) ([]byte, error) {
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxPackageRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/styles.xml", docxStyles},
		{"word/numbering.xml", docxNumbering},
		{"word/document.xml", docxDocument(doc, opts)},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		// Pinning the entry time keeps equal documents byte-identical.
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: doc.Metadata.GeneratedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish docx: %w", err)
	}
	return buf.Bytes(), nil
}

func docxDocument(doc *assembler.Document, opts Options) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<w:document xmlns:w="` + wordNS + `" xmlns:r="` + relNS + `"><w:body>`)

	title := strings.TrimSpace(doc.Metadata.Title)
	if title == "" {
		title = assembler.DefaultTitle
	}
	sb.WriteString(docxPara(`<w:pStyle w:val="Title"/>`, docxRun(title, "")))
	if s := strings.TrimSpace(doc.Metadata.Subject); s != "" {
		sb.WriteString(docxPara(`<w:jc w:val="center"/>`, docxRun("Subject: "+s, `<w:b/>`)))
	}
	if !doc.Metadata.GeneratedAt.IsZero() {
		sb.WriteString(docxPara(`<w:jc w:val="center"/>`, docxRun("Generated: "+doc.Metadata.GeneratedAt.Format(DateLayout), `<w:sz w:val="16"/>`)))
	}

	bookmark := 0
	for _, b := range doc.Blocks {
		rPr := ""
		if opts.HighlightUnresolved && len(b.Unresolved) > 0 {
			rPr = `<w:highlight w:val="yellow"/>`
		}
		switch b.Kind {
		case assembler.BlockTOC:
			sb.WriteString(docxPara(`<w:pStyle w:val="TOCHeading"/>`, docxRun("TABLE OF CONTENTS", "")))
			for _, e := range b.Entries {
				link := fmt.Sprintf(`<w:hyperlink w:anchor="%s">%s</w:hyperlink>`, bookmarkName(string(e.TargetRef)), docxRun(e.Label(), ""))
				sb.WriteString(docxPara(fmt.Sprintf(`<w:spacing w:after="0"/><w:ind w:left="%d"/>`, e.IndentLevel*docxIndent), link))
			}
			sb.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		case assembler.BlockHeading:
			level := min(max(b.Level, 1), 3)
			run := docxRun(b.Text, rPr)
			if b.Anchor != "" {
				bookmark++
				run = fmt.Sprintf(`<w:bookmarkStart w:id="%d" w:name="%s"/>%s<w:bookmarkEnd w:id="%d"/>`,
					bookmark, bookmarkName(string(b.Anchor)), run, bookmark)
			}
			sb.WriteString(docxPara(fmt.Sprintf(`<w:pStyle w:val="Heading%d"/>`, level), run))
		case assembler.BlockParagraph:
			sb.WriteString(docxPara("", docxRun(b.Text, rPr)))
		case assembler.BlockListItem:
			sb.WriteString(docxPara(`<w:pStyle w:val="ListBullet"/>`, docxRun(b.Text, rPr)))
		case assembler.BlockBreak:
			sb.WriteString(`<w:p/>`)
		}
	}

	sb.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return sb.String()
}

func docxPara(pPr, content string) string {
	if pPr != "" {
		pPr = "<w:pPr>" + pPr + "</w:pPr>"
	}
	return "<w:p>" + pPr + content + "</w:p>"
}

func docxRun(text, rPr string) string {
	if rPr != "" {
		rPr = "<w:rPr>" + rPr + "</w:rPr>"
	}
	return "<w:r>" + rPr + `<w:t xml:space="preserve">` + xmlEscape(text) + "</w:t></w:r>"
}

func xmlEscape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// Word bookmark names allow letters, digits and underscores only.
func bookmarkName(ref string) string {
	return strings.ReplaceAll(ref, "-", "_")
}
