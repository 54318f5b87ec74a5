// Package storage keeps uploaded grid images on disk.
//
// Each accepted upload is written atomically (temporary file, then rename)
// under a random name and addressed by a blob reference such as
// "blob://3f0c...e1.jpg". The reference is what an uploaded grid cell carries
// as its image URL; Open resolves it back to the file.
//
//	store, err := storage.NewBlobStore("./uploads")
//	if err != nil {
//	    return err
//	}
//	ref, err := store.Save(file, ".png")
//	rc, err := store.Open(ref)
package storage
