// Package storage writes downloaded images to the output directory.
//
// Files are named by their 1-based position in the candidate list using a
// pattern such as "image_{index}.jpg". Writes go through a temporary file
// and an atomic rename, so a second run with the same inputs replaces
// image_1.jpg, image_2.jpg, ... in place instead of accumulating copies.
//
//	manager, err := storage.NewManager("out", storage.DefaultFileNamePattern)
//	if err != nil {
//	    return err
//	}
//	n, err := manager.Save(resp.Body, 1) // out/image_1.jpg
package storage
