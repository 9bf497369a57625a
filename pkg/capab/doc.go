// Package capab parses OGC capabilities documents.
//
// Only the subset needed to create a layer is decoded: the document
// version, layer names and titles, supported coordinate systems and
// encodings, bounding boxes, tile matrix sets and resource URLs. Element
// names are matched without namespaces, so documents that bind the OGC
// namespaces to unusual prefixes decode all the same.
//
// Supported documents are WMS 1.1.1 and 1.3.0 ([ParseWMS]), WFS 1.1.0 and
// 2.0.0 ([ParseWFS]) and WMTS 1.0.0 ([ParseWMTS]). [Parse] picks the parser
// by service name and returns the service-neutral [Document] view used for
// listings.
package capab
