//go:build chroma

package main

import _ "github.com/xxxsen/embedlab/internal/vectorstore/chromastore"
