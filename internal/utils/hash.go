package utils

import "hash/fnv"

func HashStringToUint64(s string) uint64 {
	return HashBytesToUint64([]byte(s))
}

func HashBytesToUint64(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
