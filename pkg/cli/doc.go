// Package cli holds the pieces shared by the rtring command-line tools:
// YAML configuration with named contexts, result output in YAML or JSON,
// and terminal rendering of ring snapshots.
//
// Configuration lives in ~/.rtring/<app>/config.yaml:
//
//	current_context: studio
//	contexts:
//	  studio:
//	    ring:
//	      name: synth
//	      capacity: 4096
//	    snapshot:
//	      index_dir: /var/lib/rtring/index
//	      keep: 20
//	    archive:
//	      s3:
//	        bucket: ring-dumps
//	        region: eu-west-1
package cli
