// Package config provides configuration parsing for the sharedstate tool.
//
// The configuration is stored in sharedstate.json (or sharedstate.yaml /
// sharedstate.yml) in the working directory or one of its parents. Every
// field is optional.
//
// # Configuration File Structure
//
//	{
//	  "storage": {
//	    "backend": "file",
//	    "path": ".sharedstate/values.json"
//	  },
//	  "inspector": {
//	    "addr": "localhost:7070"
//	  },
//	  "debug": true,
//	  "persistTimeout": "5s",
//	  "metrics": {
//	    "namespace": "sharedstate"
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  }
//	}
//
// The S3 backend reads bucket, prefix, region, endpoint and usePathStyle
// from the storage block.
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Backend:", cfg.Storage.Backend)
package config
