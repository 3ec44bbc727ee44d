// Package dashboard describes dashboards as data.
//
// A Layout is a named list of tabs, each holding PanelSpecs. A panel names
// one pipeline operation (its Kind) and the measures and dimensions it
// runs over; Compute evaluates it against a filtered dataset. Every
// dashboard variant is therefore a thin configuration over the same
// pipeline. The retention and premium layouts are built in; more can be
// loaded from YAML:
//
//	layouts:
//	  - name: lines
//	    title: By product line
//	    tabs:
//	      - title: Lines
//	        panels:
//	          - id: loss_by_line
//	            kind: trend
//	            group_by: prod_line
//	            fields: [loss_ratio]
package dashboard
