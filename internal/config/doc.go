// Package config loads pipeline profiles written in HCL.
//
// A profile file holds one or more named pipeline blocks plus optional
// variable declarations:
//
//	variable "max_delay" {
//	  default = 62
//	}
//
//	pipeline "loihi-strict" {
//	  target          = "loihi2"
//	  passes          = ["validate", "partition", "placement", "routing", "timing", "resource-check"]
//	  policy          = "strict"
//	  max_delay_ticks = var.max_delay
//
//	  severity "BandwidthExceeded" {
//	    level = "warning"
//	  }
//
//	  dump {
//	    dir     = "out"
//	    formats = ["json"]
//	  }
//	}
//
// Variables are evaluated first; values supplied by the caller override
// declared defaults and are visible to pipeline blocks as var.<name>.
package config
