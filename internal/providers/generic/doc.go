// Package generic reads books from arbitrary HTML manga reading sites.
//
// Chapters are detected from link hrefs and titles, and page images are
// gathered by a Collector that scans img/picture/anchor/background sources,
// embedded Nuxt state and optionally endpoints referenced from inline
// scripts. The Collector is shared with the image gallery plugin.
package generic
