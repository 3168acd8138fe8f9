package pdfdoc

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// update collects new and replaced objects and appends them to the
// source as an incremental update section. The output depends only on
// the source bytes and on the objects added, in the order they were
// added.
type update struct {
	src     *source
	next    int
	objects map[int]Object
	gens    map[int]int
}

func newUpdate(src *source) *update {
	return &update{
		src:     src,
		next:    src.size,
		objects: make(map[int]Object),
		gens:    make(map[int]int),
	}
}

// add stores obj as a new indirect object.
func (u *update) add(obj Object) Reference {
	ref := Reference{Number: u.next}
	u.next++
	u.objects[ref.Number] = obj
	return ref
}

// replace supersedes an existing object of the source.
func (u *update) replace(ref Reference, obj Object) {
	u.objects[ref.Number] = obj
	u.gens[ref.Number] = ref.Generation
}

func (u *update) empty() bool {
	return len(u.objects) == 0
}

// write returns the source followed by the update section.
func (u *update) write(compressXRef bool) []byte {
	var out bytes.Buffer
	out.Grow(len(u.src.data) + 4096)
	out.Write(u.src.data)
	if !bytes.HasSuffix(u.src.data, []byte("\n")) {
		out.WriteByte('\n')
	}
	bodyStart := out.Len()

	nums := make([]int, 0, len(u.objects))
	for num := range u.objects {
		nums = append(nums, num)
	}
	slices.Sort(nums)

	offsets := make(map[int]int, len(nums)+1)
	for _, num := range nums {
		offsets[num] = out.Len()
		fmt.Fprintf(&out, "%d %d obj\n", num, u.gens[num])
		writeObject(&out, u.objects[num])
		out.WriteString("\nendobj\n")
	}

	trailer := Dict{
		"Root": u.src.root,
		"Prev": Integer(u.src.startxref),
		"ID":   u.fileID(out.Bytes()[bodyStart:]),
	}
	if u.src.info != nil {
		trailer["Info"] = *u.src.info
	}

	xrefAt := out.Len()
	if u.src.xrefStream {
		// the cross-reference stream lists itself
		self := u.next
		nums = append(nums, self)
		offsets[self] = xrefAt
		trailer["Size"] = Integer(self + 1)
		u.writeXRefStream(&out, self, nums, offsets, trailer, compressXRef)
	} else {
		trailer["Size"] = Integer(u.next)
		u.writeXRefTable(&out, nums, offsets, trailer)
	}

	fmt.Fprintf(&out, "startxref\n%d\n%%%%EOF\n", xrefAt)
	return out.Bytes()
}

// fileID keeps the permanent half of the source identifier and derives
// the changing half from the update body.
func (u *update) fileID(body []byte) Array {
	permanent, ok := u.src.documentID()
	if !ok {
		sum := blake2b.Sum256(u.src.data)
		permanent = String(sum[:16])
	}
	sum := blake2b.Sum256(body)
	return Array{permanent, String(sum[:16])}
}

// subsections groups sorted object numbers into runs of consecutive
// numbers.
func subsections(nums []int) [][2]int {
	var runs [][2]int
	for _, num := range nums {
		if n := len(runs); n > 0 && runs[n-1][0]+runs[n-1][1] == num {
			runs[n-1][1]++
			continue
		}
		runs = append(runs, [2]int{num, 1})
	}
	return runs
}

func (u *update) writeXRefTable(out *bytes.Buffer, nums []int, offsets map[int]int, trailer Dict) {
	out.WriteString("xref\n")
	i := 0
	for _, run := range subsections(nums) {
		fmt.Fprintf(out, "%d %d\n", run[0], run[1])
		for j := 0; j < run[1]; j++ {
			num := nums[i]
			i++
			fmt.Fprintf(out, "%010d %05d n\r\n", offsets[num], u.gens[num])
		}
	}
	out.WriteString("trailer\n")
	writeObject(out, trailer)
	out.WriteByte('\n')
}

func (u *update) writeXRefStream(out *bytes.Buffer, self int, nums []int, offsets map[int]int, trailer Dict, compress bool) {
	offsetWidth := 1
	for v := offsets[self]; v > 0xff; v >>= 8 {
		offsetWidth++
	}

	var rows bytes.Buffer
	for _, num := range nums {
		rows.WriteByte(1)
		off := offsets[num]
		for shift := (offsetWidth - 1) * 8; shift >= 0; shift -= 8 {
			rows.WriteByte(byte(off >> shift))
		}
		gen := u.gens[num]
		rows.WriteByte(byte(gen >> 8))
		rows.WriteByte(byte(gen))
	}

	index := Array{}
	for _, run := range subsections(nums) {
		index = append(index, Integer(run[0]), Integer(run[1]))
	}

	dict := trailer.Clone()
	dict["Type"] = Name("XRef")
	dict["W"] = Array{Integer(1), Integer(offsetWidth), Integer(2)}
	dict["Index"] = index
	data := rows.Bytes()
	if compress {
		dict["Filter"] = Name("FlateDecode")
		data = deflate(data)
	}

	out.WriteString(strconv.Itoa(self) + " 0 obj\n")
	writeObject(out, &Stream{Dict: dict, Data: data})
	out.WriteString("\nendobj\n")
}
