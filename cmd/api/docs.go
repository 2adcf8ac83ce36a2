//go:generate swag init -g docs.go -o ../../docs --parseDependency --parseInternal --dir .,../../internal/httpapi

package main

// @title snipshare_api API
// @version 1.0
// @description Code snippet sharing HTTP API.
// @BasePath /
