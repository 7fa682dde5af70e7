// Package encoder drives the external image tools that turn rendered slide
// PNGs into the delivery PDF: a JPEG converter (sips) and a PDF assembler
// (img2pdf). PDFOracle ties the two together as a sizesearch.Oracle.
package encoder
