// Package translate talks to the Sunbird translation API and turns its
// responses and failures into text the guide can show.
package translate
