package rsyncstats

type TransferStats struct {
	Read    int64 // total bytes read (from network connection)
	Written int64 // total bytes written (to network connection)
	Size    int64 // total size of regular files in the file list
	Entries int64 // number of file list entries
}
